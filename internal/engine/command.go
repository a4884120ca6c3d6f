package engine

import (
	"encoding/json"
	"fmt"
)

// Command is one inbound instruction: Init, SetProperty or Call.
type Command interface {
	command()
}

// Init allocates a Width×Height lattice and binds the raster sink. Sink may
// be nil, in which case rendering is skipped.
type Init struct {
	Width  int
	Height int
	Sink   FrameSink
}

// SetProperty assigns a named engine property.
type SetProperty struct {
	Name  string
	Value any
}

// Call invokes an engine operation with positional arguments.
type Call struct {
	Method Method
	Args   []any
}

func (Init) command()        {}
func (SetProperty) command() {}
func (Call) command()        {}

// Method enumerates the callable operations.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodResize
	MethodInitializeData
	MethodInitializeDataAligned
	MethodSetKernel
	MethodSetObservable
	MethodPlay
	MethodPause
	MethodStep
	MethodSweep
	MethodRender
)

var methodNames = map[Method]string{
	MethodResize:                "resize",
	MethodInitializeData:        "initializeData",
	MethodInitializeDataAligned: "initializeDataAligned",
	MethodSetKernel:             "setKernel",
	MethodSetObservable:         "setObservable",
	MethodPlay:                  "play",
	MethodPause:                 "pause",
	MethodStep:                  "step",
	MethodSweep:                 "sweep",
	MethodRender:                "render",
}

var methodsByName = func() map[string]Method {
	m := make(map[string]Method, len(methodNames)+2)
	for k, v := range methodNames {
		m[v] = k
	}
	m["setStep"] = MethodSetKernel
	m["setObs"] = MethodSetObservable
	return m
}()

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

// ParseMethod resolves a wire method name. Unknown names map to
// MethodUnknown.
func ParseMethod(name string) Method {
	return methodsByName[name]
}

// Convenience constructors for hosts.

func Resize(w, h int) Call { return Call{Method: MethodResize, Args: []any{w, h}} }
func InitializeData() Call { return Call{Method: MethodInitializeData} }
func InitializeDataAligned() Call { return Call{Method: MethodInitializeDataAligned} }
func SetKernel(name string) Call { return Call{Method: MethodSetKernel, Args: []any{name}} }
func SetObservable(name string) Call { return Call{Method: MethodSetObservable, Args: []any{name}} }
func Play() Call { return Call{Method: MethodPlay} }
func Pause() Call { return Call{Method: MethodPause} }
func Step() Call { return Call{Method: MethodStep} }
func Sweep() Call { return Call{Method: MethodSweep} }
func Render() Call { return Call{Method: MethodRender} }
func SetTemperature(t float64) SetProperty { return SetProperty{Name: PropertyT, Value: t} }
func SetRecord(on bool) SetProperty { return SetProperty{Name: PropertyRecord, Value: on} }

// Property names accepted by SetProperty.
const (
	PropertyT          = "T"
	PropertyRecord     = "record"
	PropertyKernel     = "kernel"
	PropertyObservable = "observable"
)

type wireInstruction struct {
	Width      *int    `json:"width"`
	Height     *int    `json:"height"`
	Method     *string `json:"method"`
	Parameters []any   `json:"parameters"`
	Property   *string `json:"property"`
	Value      any     `json:"value"`
}

// DecodeBatch parses the JSON wire form of a batch:
//
//	[{"width":64,"height":64},
//	 {"property":"T","value":1.2},
//	 {"method":"resize","parameters":[128,128]}]
//
// Entries that match none of the three shapes are skipped. Unknown method
// names decode to MethodUnknown and are dropped by Handle. Only malformed
// JSON is an error.
func DecodeBatch(data []byte) ([]Command, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("engine: decode batch: %w", err)
	}

	batch := make([]Command, 0, len(raw))
	for _, r := range raw {
		var in wireInstruction
		if err := json.Unmarshal(r, &in); err != nil {
			continue
		}
		switch {
		case in.Width != nil && in.Height != nil:
			batch = append(batch, Init{Width: *in.Width, Height: *in.Height})
		case in.Method != nil:
			batch = append(batch, Call{Method: ParseMethod(*in.Method), Args: in.Parameters})
		case in.Property != nil:
			batch = append(batch, SetProperty{Name: *in.Property, Value: in.Value})
		}
	}
	return batch, nil
}
