package typed

import "testing"

func TestMapPutGetRemoveDelete(t *testing.T) {
	m, err := New[uint32, uint64](0, NewFixedCodec[uint32](), NewFixedCodec[uint64]())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	for i := uint32(0); i < 500; i++ {
		m.Put(i, uint64(i)*uint64(i))
	}
	if m.Len() != 500 {
		t.Fatalf("expected 500 entries, got %d", m.Len())
	}
	v, ok := m.Get(250)
	if !ok || v != 250*250 {
		t.Fatalf("expected Get(250) == 62500, got %v ok=%v", v, ok)
	}

	rv, ok := m.Remove(250)
	if !ok || rv != 62500 {
		t.Fatalf("expected Remove(250) == 62500, got %v ok=%v", rv, ok)
	}
	if _, ok := m.Get(250); ok {
		t.Fatalf("expected 250 absent after Remove")
	}

	if !m.Delete(10) {
		t.Fatalf("expected Delete(10) to report key present")
	}
	if m.Delete(10) {
		t.Fatalf("expected second Delete(10) to report key absent")
	}
}

func TestMapStringKeyCodec(t *testing.T) {
	m, err := New[string, uint32](0, NewStringCodec(16), NewFixedCodec[uint32]())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	m.Put("hello", 1)
	m.Put("world", 2)

	v, ok := m.Get("hello")
	if !ok || v != 1 {
		t.Fatalf("expected Get(hello) == 1, got %v ok=%v", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatalf("expected Get(missing) to miss")
	}
}

func TestStringCodecTruncatesAndTrims(t *testing.T) {
	c := NewStringCodec(4)
	enc := c.Encode("hello") // truncated to "hell"
	if string(enc) != "hell" {
		t.Fatalf("expected truncation to 4 bytes, got %q", enc)
	}
	enc2 := c.Encode("hi")
	dec := c.Decode(enc2)
	if dec != "hi" {
		t.Fatalf("expected trailing zero padding trimmed, got %q", dec)
	}
}
