package msgpack

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/richinsley/msgpack/reflectshape"
	"github.com/richinsley/msgpack/shape"
)

// TestNilPointerWritesNil tests the nullable protocol for the absent case.
func TestNilPointerWritesNil(t *testing.T) {
	var p *poco
	data, err := Serialize(p, pocoShapeProvider{fallback: reflectshape.New()})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(data, []byte{formatNil}) {
		t.Errorf("bytes = % x, expected c0", data)
	}

	var got *poco
	if err := Deserialize(data, &got, pocoShapeProvider{fallback: reflectshape.New()}); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got != nil {
		t.Errorf("round trip = %+v, expected nil", got)
	}
}

// TestPresentPointerRoundTrip tests the nullable protocol for the present
// case.
func TestPresentPointerRoundTrip(t *testing.T) {
	prov := pocoShapeProvider{fallback: reflectshape.New()}
	data, err := Serialize(&poco{X: 3, Y: 4}, prov)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var got *poco
	if err := Deserialize(data, &got, prov); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got == nil || *got != (poco{X: 3, Y: 4}) {
		t.Errorf("round trip = %+v", got)
	}
}

// TestEnumerableRoundTrip tests slice encoding as an array of elements.
func TestEnumerableRoundTrip(t *testing.T) {
	in := []int64{5, -7, 300}
	data, err := Serialize(in, reflectshape.New())
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if data[0] != formatFixArray|3 {
		t.Errorf("lead byte = 0x%02x, expected fixarray(3)", data[0])
	}
	var got []int64
	if err := Deserialize(data, &got, reflectshape.New()); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip = %v", got)
	}
}

// TestDictionaryRoundTrip tests map encoding as interleaved pairs.
func TestDictionaryRoundTrip(t *testing.T) {
	in := map[string]int64{"a": 1, "b": -2, "c": 70000}
	data, err := Serialize(in, reflectshape.New())
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var got map[string]int64
	if err := Deserialize(data, &got, reflectshape.New()); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip = %v", got)
	}
}

type mood int

type moodProvider struct{}

func (moodProvider) ShapeOf(t reflect.Type) (shape.Shape, error) {
	if t == reflect.TypeOf(mood(0)) {
		return shape.Shape{
			Kind:       shape.KindEnum,
			GoType:     t,
			EnumNames:  map[int64]string{0: "sad", 1: "happy"},
			EnumValues: map[string]int64{"sad": 0, "happy": 1},
		}, nil
	}
	return shape.Shape{Kind: shape.KindNone, GoType: t}, nil
}

// TestEnumSerializesAsInteger tests the default integer form of an enum.
func TestEnumSerializesAsInteger(t *testing.T) {
	data, err := Serialize(mood(1), moodProvider{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(data, []byte{0x01}) {
		t.Errorf("bytes = % x, expected 01", data)
	}
	var got mood
	if err := Deserialize(data, &got, moodProvider{}); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got != 1 {
		t.Errorf("round trip = %d", got)
	}
}

// TestEnumAcceptsStringForm tests that a name on the wire decodes to the
// enum value.
func TestEnumAcceptsStringForm(t *testing.T) {
	data := appendString(nil, "happy")
	var got mood
	if err := Deserialize(data, &got, moodProvider{}); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got != 1 {
		t.Errorf("decoded %d, expected 1", got)
	}

	data = appendString(nil, "furious")
	err := Deserialize(data, &got, moodProvider{})
	if !IsCode(err, CodeUnknownUnionDiscriminator) {
		t.Errorf("unknown name error = %v", err)
	}
}

type color uint8

type colorProvider struct{}

func (colorProvider) ShapeOf(t reflect.Type) (shape.Shape, error) {
	if t == reflect.TypeOf(color(0)) {
		return shape.Shape{
			Kind:       shape.KindEnum,
			GoType:     t,
			EnumNames:  map[int64]string{200: "crimson", 3: "teal"},
			EnumValues: map[string]int64{"crimson": 200, "teal": 3},
		}, nil
	}
	return shape.Shape{Kind: shape.KindNone, GoType: t}, nil
}

// TestUnsignedEnumRoundTrip tests an enum backed by an unsigned type,
// including a value outside the signed range of its width.
func TestUnsignedEnumRoundTrip(t *testing.T) {
	data, err := Serialize(color(200), colorProvider{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(data, []byte{formatUint8, 200}) {
		t.Errorf("bytes = % x, expected cc c8", data)
	}
	var got color
	if err := Deserialize(data, &got, colorProvider{}); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got != 200 {
		t.Errorf("round trip = %d", got)
	}

	// The string form decodes into the unsigned type too.
	if err := Deserialize(appendString(nil, "crimson"), &got, colorProvider{}); err != nil {
		t.Fatalf("Deserialize(name): %v", err)
	}
	if got != 200 {
		t.Errorf("name decoded to %d", got)
	}
}

// TestEnumAsStringOption tests writing enums by declared name, with the
// integer fallback for values that have none.
func TestEnumAsStringOption(t *testing.T) {
	data, err := Serialize(color(200), colorProvider{}, WithEnumAsString(true))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(data, appendString(nil, "crimson")) {
		t.Errorf("bytes = % x, expected the declared name", data)
	}
	var got color
	if err := Deserialize(data, &got, colorProvider{}); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got != 200 {
		t.Errorf("round trip = %d", got)
	}

	// A value with no declared name still writes as its integer.
	data, err = Serialize(color(7), colorProvider{}, WithEnumAsString(true))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(data, []byte{0x07}) {
		t.Errorf("unnamed value = % x, expected 07", data)
	}

	// The signed path takes the same option.
	data, err = Serialize(mood(1), moodProvider{}, WithEnumAsString(true))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(data, appendString(nil, "happy")) {
		t.Errorf("signed enum name = % x", data)
	}
}

type temperature struct {
	Celsius float64
}

type temperatureProvider struct{}

func (temperatureProvider) ShapeOf(t reflect.Type) (shape.Shape, error) {
	if t == reflect.TypeOf(temperature{}) {
		return shape.Shape{
			Kind:    shape.KindSurrogate,
			GoType:  t,
			Element: &shape.Shape{GoType: reflect.TypeOf(float64(0))},
			To: func(v reflect.Value) reflect.Value {
				return v.Field(0)
			},
			From: func(v reflect.Value) reflect.Value {
				return reflect.ValueOf(temperature{Celsius: v.Float()})
			},
		}, nil
	}
	return shape.Shape{Kind: shape.KindNone, GoType: t}, nil
}

// TestSurrogateRoundTrip tests transform-then-delegate in both
// directions.
func TestSurrogateRoundTrip(t *testing.T) {
	data, err := Serialize(temperature{Celsius: 21.5}, temperatureProvider{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if data[0] != formatFloat64 {
		t.Errorf("lead byte = 0x%02x, expected float64", data[0])
	}
	var got temperature
	if err := Deserialize(data, &got, temperatureProvider{}); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Celsius != 21.5 {
		t.Errorf("round trip = %+v", got)
	}
}

type treeNode struct {
	Label    string      `msgpack:"label"`
	Children []*treeNode `msgpack:"children,omitempty"`
}

// TestRecursiveShapeRoundTrip tests that a self-referential type builds
// through the forwarding placeholder and round trips.
func TestRecursiveShapeRoundTrip(t *testing.T) {
	in := &treeNode{
		Label: "root",
		Children: []*treeNode{
			{Label: "left"},
			{Label: "right", Children: []*treeNode{{Label: "leaf"}}},
		},
	}
	s := NewSerializer(reflectshape.New())
	data, err := s.Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var got *treeNode
	if err := s.Deserialize(data, &got); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip = %+v", got)
	}
}

// TestNamedScalarTypesUseLeafConverters tests that a provider with nothing
// to say about a named integer type still serializes it as its underlying
// kind.
func TestNamedScalarTypesUseLeafConverters(t *testing.T) {
	type level int8
	data, err := Serialize(level(5), reflectshape.New())
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(data, []byte{0x05}) {
		t.Errorf("bytes = % x", data)
	}
	var got level
	if err := Deserialize(data, &got, reflectshape.New()); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got != 5 {
		t.Errorf("round trip = %d", got)
	}
}
