// Package stdlib is the reference host runtime the CLI driver registers
// with a VM before running a program (§6 "Host-provided globals" and the
// module-resolution note about `@std/*`). None of it is part of the core
// language pipeline; it only exercises the Internal function ABI the VM
// exposes.
package stdlib

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kristofer/tonic/pkg/value"
	"github.com/kristofer/tonic/pkg/vm"
)

// Options configures the globals Register installs that need values only
// the driver knows: the running script's path and an output writer.
type Options struct {
	File   string
	Dir    string
	Stdout io.Writer
}

// Register installs every standard-library internal function onto m,
// mirroring what the CLI driver does before Run (§6).
func Register(m *vm.VM, opts Options) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	m.AddFunction("println", func(_ any, args []value.Value) value.Value {
		// args arrive in caller-pop order; print them in source order.
		for i := len(args) - 1; i >= 0; i-- {
			fmt.Fprintln(opts.Stdout, args[i].Render())
		}
		return value.Null()
	})

	m.AddFunction("__FILE__", func(_ any, _ []value.Value) value.Value {
		return value.String(opts.File)
	})

	m.AddFunction("__DIR__", func(_ any, _ []value.Value) value.Value {
		return value.String(opts.Dir)
	})

	m.AddFunction("readFile", readFile)
	m.AddFunction("writeFile", writeFile)
	m.AddFunction("env", readEnv)
	m.AddFunction("httpGet", httpGet)
	m.AddFunction("httpPost", httpPost)
	m.AddFunction("jsonEncode", jsonEncode)
	m.AddFunction("jsonDecode", jsonDecode)
	m.AddFunction("uuid", newUUID)
}

func readFile(_ any, args []value.Value) value.Value {
	if len(args) < 1 || args[0].Kind != value.KindString {
		return value.Null()
	}
	content, err := os.ReadFile(args[0].AsString())
	if err != nil {
		return value.Null()
	}
	return value.String(string(content))
}

func writeFile(_ any, args []value.Value) value.Value {
	if len(args) < 2 {
		return value.Bool(false)
	}
	// args arrive in caller-pop order: the last element is the first argument.
	path, contents := args[len(args)-1], args[len(args)-2]
	if path.Kind != value.KindString || contents.Kind != value.KindString {
		return value.Bool(false)
	}
	if err := os.WriteFile(path.AsString(), []byte(contents.AsString()), 0o644); err != nil {
		return value.Bool(false)
	}
	return value.Bool(true)
}

func readEnv(_ any, args []value.Value) value.Value {
	if len(args) < 1 || args[0].Kind != value.KindString {
		return value.Null()
	}
	v, ok := os.LookupEnv(args[0].AsString())
	if !ok {
		return value.Null()
	}
	return value.String(v)
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func httpGet(_ any, args []value.Value) value.Value {
	if len(args) < 1 || args[0].Kind != value.KindString {
		return value.Null()
	}
	resp, err := httpClient.Get(args[0].AsString())
	if err != nil {
		return value.Null()
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Null()
	}
	return value.String(string(body))
}

func httpPost(_ any, args []value.Value) value.Value {
	if len(args) < 2 {
		return value.Null()
	}
	// args arrive in caller-pop order: the last element is the first argument.
	url, payload := args[len(args)-1], args[len(args)-2]
	if url.Kind != value.KindString || payload.Kind != value.KindString {
		return value.Null()
	}
	resp, err := httpClient.Post(url.AsString(), "application/json", strings.NewReader(payload.AsString()))
	if err != nil {
		return value.Null()
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Null()
	}
	return value.String(string(body))
}

func jsonEncode(_ any, args []value.Value) value.Value {
	if len(args) < 1 {
		return value.Null()
	}
	encoded, err := json.Marshal(toPlain(args[0]))
	if err != nil {
		return value.Null()
	}
	return value.String(string(encoded))
}

func jsonDecode(_ any, args []value.Value) value.Value {
	if len(args) < 1 || args[0].Kind != value.KindString {
		return value.Null()
	}
	var decoded any
	if err := json.Unmarshal([]byte(args[0].AsString()), &decoded); err != nil {
		return value.Null()
	}
	return fromPlain(decoded)
}

func newUUID(_ any, _ []value.Value) value.Value {
	return value.String(uuid.NewString())
}

// toPlain converts a Value into plain Go data json.Marshal understands.
func toPlain(v value.Value) any {
	switch v.Kind {
	case value.KindString:
		return v.AsString()
	case value.KindNumber:
		return v.AsNumber()
	case value.KindBool:
		return v.AsBool()
	case value.KindNull:
		return nil
	case value.KindArray:
		items := v.AsArray().Items
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toPlain(item)
		}
		return out
	default:
		return v.Render()
	}
}

// fromPlain converts decoded JSON data back into a Value. Objects decode as
// arrays of their values, since tonic has no map/record type (§1 Non-goals).
func fromPlain(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(t)
	case float64:
		return value.Number(t)
	case string:
		return value.String(t)
	case []any:
		items := make([]value.Value, len(t))
		for i, item := range t {
			items[i] = fromPlain(item)
		}
		return value.NewArray(items)
	case map[string]any:
		items := make([]value.Value, 0, len(t))
		for _, item := range t {
			items = append(items, fromPlain(item))
		}
		return value.NewArray(items)
	default:
		return value.Null()
	}
}
