package msgpack

import (
	"bytes"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/richinsley/msgpack/reflectshape"
)

type account struct {
	ID      uint64            `msgpack:"id"`
	Name    string            `msgpack:"name"`
	Active  bool              `msgpack:"active"`
	Balance float64           `msgpack:"balance"`
	Rank    int32             `msgpack:"rank"`
	Secret  []byte            `msgpack:"secret,omitempty"`
	Tags    []string          `msgpack:"tags,omitempty"`
	Meta    map[string]int64  `msgpack:"meta,omitempty"`
	Parent  *account          `msgpack:"parent,omitempty"`
	skipped string
	Ignored string `msgpack:"-"`
}

// TestRoundTripStruct tests value-equality round trips across the
// supported field kinds.
func TestRoundTripStruct(t *testing.T) {
	in := account{
		ID:      900,
		Name:    "prod-primary",
		Active:  true,
		Balance: -12.75,
		Rank:    -3,
		Secret:  []byte{0xde, 0xad},
		Tags:    []string{"a", "b"},
		Meta:    map[string]int64{"hits": 42},
		Parent:  &account{ID: 1, Name: "root"},
	}
	s := NewSerializer(reflectshape.New())
	data, err := s.Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var got account
	if err := s.Deserialize(data, &got); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch\n got %+v\nwant %+v", got, in)
	}
}

// TestByteStableIdempotence tests Serialize(Deserialize(Serialize(v))) ==
// Serialize(v).
func TestByteStableIdempotence(t *testing.T) {
	in := namedPerson{FirstName: "Andrew", LastName: "Arnott"}
	s := NewSerializer(reflectshape.New())
	first, err := s.Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var mid namedPerson
	if err := s.Deserialize(first, &mid); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	second, err := s.Serialize(mid)
	if err != nil {
		t.Fatalf("re-Serialize: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("bytes not stable\nfirst  % x\nsecond % x", first, second)
	}
}

// TestTimeRoundTrip tests time.Time through the timestamp extension.
func TestTimeRoundTrip(t *testing.T) {
	for _, tm := range []time.Time{
		time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 2, 3, 4, 5, 600, time.UTC),
		time.Date(1905, 6, 7, 0, 0, 0, 0, time.UTC),
	} {
		data, err := Serialize(tm, nil)
		if err != nil {
			t.Fatalf("Serialize(%v): %v", tm, err)
		}
		var got time.Time
		if err := Deserialize(data, &got, nil); err != nil {
			t.Fatalf("Deserialize(%v): %v", tm, err)
		}
		if !got.Equal(tm) {
			t.Errorf("round trip %v produced %v", tm, got)
		}
	}
}

// TestDeserializeRequiresPointer tests the out-parameter contract.
func TestDeserializeRequiresPointer(t *testing.T) {
	var got namedPerson
	err := Deserialize([]byte{0x80}, got, reflectshape.New())
	if !IsCode(err, CodeInvalidOperation) {
		t.Errorf("Deserialize(non-pointer) = %v, expected InvalidOperation", err)
	}
}

type person struct {
	Name string `msgpack:"name"`
	Age  uint32 `msgpack:"age"`
}

// TestFramedStreamOfValues tests that serialized values are
// self-delimited: a hundred records framed onto one stream come back
// intact.
func TestFramedStreamOfValues(t *testing.T) {
	people := make([]person, 100)
	for i := range people {
		people[i] = person{Name: "person" + string(rune('A'+i%26)), Age: uint32(i)}
	}

	s := NewSerializer(reflectshape.New())
	var wire bytes.Buffer
	fw := NewFramedWriter(&wire)
	data, err := s.Serialize(people)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if err := fw.WriteMessage(data); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	// A second, independent frame on the same stream.
	single, err := s.Serialize(people[3])
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if err := fw.WriteMessage(single); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	fr := NewFramedReader(&wire)
	frame, err := fr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var got []person
	if err := s.Deserialize(frame, &got); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(got, people) {
		t.Error("framed slice did not round trip")
	}

	frame, err = fr.ReadMessage()
	if err != nil {
		t.Fatalf("second ReadMessage: %v", err)
	}
	var one person
	if err := s.Deserialize(frame, &one); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if one != people[3] {
		t.Errorf("second frame = %+v", one)
	}
}

// TestSerializerConcurrentUse tests that independent operations sharing
// one converter cache do not interfere.
func TestSerializerConcurrentUse(t *testing.T) {
	s := NewSerializer(reflectshape.New())
	in := account{ID: 7, Name: "shared", Meta: map[string]int64{"k": 1}}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				data, err := s.Serialize(in)
				if err != nil {
					t.Errorf("Serialize: %v", err)
					return
				}
				var got account
				if err := s.Deserialize(data, &got); err != nil {
					t.Errorf("Deserialize: %v", err)
					return
				}
				if got.ID != in.ID || got.Name != in.Name {
					t.Errorf("round trip = %+v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
