package pager

import "testing"

func TestInt64CodecRoundTrip(t *testing.T) {
	c := Int64Codec{}
	for _, v := range []int64{0, 1, -1, 1 << 40, -(1 << 40)} {
		buf := c.Marshal(v)
		got, err := c.Unmarshal(buf)
		if err != nil || got != v {
			t.Fatalf("Int64Codec round trip: got %d, %v, want %d", got, err, v)
		}
	}
}

func TestStringCodecRoundTrip(t *testing.T) {
	c := StringCodec{}
	for _, v := range []string{"", "hello", "unicode: héllo 世界"} {
		got, err := c.Unmarshal(c.Marshal(v))
		if err != nil || got != v {
			t.Fatalf("StringCodec round trip: got %q, %v, want %q", got, err, v)
		}
	}
}

func TestDynamicValueCodecRoundTrip(t *testing.T) {
	c := DynamicValueCodec{}
	cases := []DynamicValue{
		{Tag: TagNil},
		{Tag: TagBool, Bool: true},
		{Tag: TagInt64, I: -99},
		{Tag: TagFloat64, F: 3.5},
		{Tag: TagString, S: "hi"},
		{Tag: TagBytes, B: []byte{1, 2, 3}},
	}
	for _, v := range cases {
		buf := c.Marshal(v)
		got, err := c.Unmarshal(buf)
		if err != nil {
			t.Fatalf("Unmarshal(%+v): %v", v, err)
		}
		if got.Tag != v.Tag || got.I != v.I || got.F != v.F || got.S != v.S || got.Bool != v.Bool || string(got.B) != string(v.B) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, v)
		}
	}
}

func TestInvalidBufferSizeError(t *testing.T) {
	_, err := Int64Codec{}.Unmarshal([]byte{1, 2, 3})
	var sizeErr *InvalidBufferSizeError
	if err == nil {
		t.Fatal("expected error for short buffer")
	}
	if !isInvalidBufferSize(err, &sizeErr) {
		t.Fatalf("expected *InvalidBufferSizeError, got %T: %v", err, err)
	}
}

func isInvalidBufferSize(err error, target **InvalidBufferSizeError) bool {
	if e, ok := err.(*InvalidBufferSizeError); ok {
		*target = e
		return true
	}
	return false
}
