package grpc

import (
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const protoFile = "../../proto/workout/v1/session.proto"

var (
	rpcPattern     = regexp.MustCompile(`rpc (\w+)\((\w+)\) returns \((\w+)\);`)
	messagePattern = regexp.MustCompile(`(?s)message (\w+) \{(.*?)\n?\}`)
	fieldPattern   = regexp.MustCompile(`(?m)^\s*(?:repeated |optional )?[\w.]+ (\w+) = \d+;`)
)

type protoSchema struct {
	rpcs     map[string][2]string
	messages map[string][]string
}

func loadProtoSchema(t *testing.T) protoSchema {
	t.Helper()
	b, err := os.ReadFile(protoFile)
	require.NoError(t, err)
	src := string(b)

	schema := protoSchema{rpcs: map[string][2]string{}, messages: map[string][]string{}}
	for _, m := range rpcPattern.FindAllStringSubmatch(src, -1) {
		schema.rpcs[m[1]] = [2]string{m[2], m[3]}
	}
	for _, m := range messagePattern.FindAllStringSubmatch(src, -1) {
		var fields []string
		for _, f := range fieldPattern.FindAllStringSubmatch(m[2], -1) {
			fields = append(fields, f[1])
		}
		sort.Strings(fields)
		schema.messages[m[1]] = fields
	}
	return schema
}

// jsonFields returns the sorted JSON names of a struct, with embedded
// structs flattened, and collects the nested message types it refers to
func jsonFields(t reflect.Type, nested map[string]reflect.Type) []string {
	var names []string
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous {
			names = append(names, jsonFields(f.Type, nested)...)
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		names = append(names, tag)

		ft := f.Type
		for ft.Kind() == reflect.Pointer || ft.Kind() == reflect.Slice {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Time{}) {
			nested[ft.Name()] = ft
		}
	}
	sort.Strings(names)
	return names
}

func TestProtoSchemaMatchesService(t *testing.T) {
	schema := loadProtoSchema(t)
	server := reflect.TypeOf((*SessionServiceServer)(nil)).Elem()

	require.Len(t, schema.rpcs, server.NumMethod())
	require.Len(t, SessionServiceDesc.Methods, server.NumMethod())

	messages := map[string]reflect.Type{}
	for i := range server.NumMethod() {
		method := server.Method(i)
		req := method.Type.In(1).Elem()
		resp := method.Type.Out(0).Elem()

		rpc, ok := schema.rpcs[method.Name]
		require.True(t, ok, "rpc %s missing from %s", method.Name, protoFile)
		assert.Equal(t, [2]string{req.Name(), resp.Name()}, rpc, method.Name)

		messages[req.Name()] = req
		messages[resp.Name()] = resp
	}

	// walk nested messages until every referenced type was compared
	for len(messages) > 0 {
		nested := map[string]reflect.Type{}
		for name, typ := range messages {
			want, ok := schema.messages[name]
			require.True(t, ok, "message %s missing from %s", name, protoFile)
			got := jsonFields(typ, nested)
			if len(want) == 0 {
				want = nil
			}
			assert.Equal(t, want, got, "fields of %s", name)
		}
		messages = nested
	}
}
