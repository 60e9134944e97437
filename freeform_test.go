package mp4

import (
	"bytes"
	"testing"
)

func TestFreeformRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		item FreeformItem
	}{
		{"utf8 json", FreeformItem{Namespace: "com.stems", Name: "kaid", TypeCode: DataTypeUTF8, Value: []byte(`{"a":1}`)}},
		{"binary payload", FreeformItem{Namespace: "com.stems", Name: "vpch", TypeCode: DataTypeBinary, Value: []byte{0x01, 0x02, 0x03, 0x04}}},
		{"empty value", FreeformItem{Namespace: "com.stems", Name: "kons", TypeCode: DataTypeBinary, Value: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box, err := EncodeFreeform(tt.item)
			if err != nil {
				t.Fatalf("EncodeFreeform: %v", err)
			}
			got, ok := DecodeFreeform(box)
			if !ok {
				t.Fatal("DecodeFreeform returned false")
			}
			if got.Namespace != tt.item.Namespace || got.Name != tt.item.Name || got.TypeCode != tt.item.TypeCode {
				t.Errorf("got %+v, want %+v", got, tt.item)
			}
			if !bytes.Equal(got.Value, tt.item.Value) {
				t.Errorf("value mismatch: got %v, want %v", got.Value, tt.item.Value)
			}
		})
	}
}

func TestEncodeFreeformRejectsInvalidUTF8(t *testing.T) {
	_, err := EncodeFreeform(FreeformItem{Namespace: "com.stems", Name: "kaid", TypeCode: DataTypeUTF8, Value: []byte{0xff, 0xfe}})
	if err == nil {
		t.Fatal("expected an error for invalid UTF-8 with type_code=1")
	}
}

func TestSetFreeformReplacesByIdentityAndPreservesUnknown(t *testing.T) {
	ilst := &Box{Type: TypeIlst}

	if err := SetFreeform(ilst, "com.stems", "kaid", DataTypeUTF8, []byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	unknown, _ := EncodeFreeform(FreeformItem{Namespace: "com.example", Name: "custom", TypeCode: DataTypeUTF8, Value: []byte("keep me")})
	ilst.OtherBoxes = append(ilst.OtherBoxes, unknown)

	if err := SetFreeform(ilst, "com.stems", "kaid", DataTypeUTF8, []byte(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}

	if len(ilst.OtherBoxes) != 2 {
		t.Fatalf("expected 2 items, got %d", len(ilst.OtherBoxes))
	}
	item, ok := GetFreeform(ilst, "com.stems", "kaid")
	if !ok || string(item.Value) != `{"v":2}` {
		t.Errorf("expected replaced kaid value, got %+v ok=%v", item, ok)
	}
	custom, ok := GetFreeform(ilst, "com.example", "custom")
	if !ok || string(custom.Value) != "keep me" {
		t.Error("expected unrelated freeform item to survive the replace")
	}
}
