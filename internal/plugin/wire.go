package plugin

import (
	"bytes"
	"strings"

	"google.golang.org/grpc/encoding"
	"gopkg.in/yaml.v3"

	"beanexport/internal/ledger"
)

// Handler servers speak plain gRPC with YAML bodies, so no generated stubs
// are needed on either side.
const (
	CodecName      = "yaml"
	ServiceName    = "beanexport.handler.v1.Handlers"
	DescribeMethod = "/" + ServiceName + "/Describe"
	HandleMethod   = "/" + ServiceName + "/Handle"
)

type DescribeRequest struct {
	Name string `yaml:"name"`
}

type DescribeResponse struct {
	Name  string `yaml:"name"`
	Found bool   `yaml:"found"`
}

type HandleRequest struct {
	Name   string  `yaml:"name"`
	Config *string `yaml:"config,omitempty"`
	Ledger string  `yaml:"ledger"`
}

// HandleResponse carries the rewritten stream, non-fatal error messages and,
// when Fatal is set, the reason the handler refused the stream.
type HandleResponse struct {
	Ledger string   `yaml:"ledger"`
	Errors []string `yaml:"errors,omitempty"`
	Fatal  string   `yaml:"fatal,omitempty"`
}

type yamlCodec struct{}

func (yamlCodec) Marshal(v any) ([]byte, error)      { return yaml.Marshal(v) }
func (yamlCodec) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }
func (yamlCodec) Name() string                       { return CodecName }

func init() { encoding.RegisterCodec(yamlCodec{}) }

// EncodeEntries renders entries for a HandleRequest or HandleResponse.
func EncodeEntries(entries ledger.Entries) (string, error) {
	var buf bytes.Buffer
	if err := ledger.Encode(&buf, entries); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func DecodeEntries(s string) (ledger.Entries, error) {
	return ledger.Decode(strings.NewReader(s))
}
