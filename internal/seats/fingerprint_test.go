package seats

import (
	"encoding/binary"
	"testing"
)

// Шифротексты получены тем же AES-128-CBC с KEY/IV из fingerprint.go,
// эталонные значения посчитаны референсной реализацией алгоритма
const (
	// расшифровывается в hex-строку "00010203"
	shortKeyCiphertext = "bbLcrRYHS3fkECganLppcQ=="
	// расшифровывается в hex-строку "8f3a1c5e9b2d4f60718293a4b5c6d7e8"
	realKeyCiphertext = "j//Zyx2YyUlDuPcGUeYBPQepEUh2CLsFuFFC7oWUKPDYzppwX3h0/1Iq9Dbejycp"
)

func TestComputeFingerprintGoldenVectors(t *testing.T) {
	cases := []struct {
		name       string
		input      string
		ciphertext string
		expect     string
	}{
		{
			name:       "short key",
			input:      "2024-01-01T09:00:0012345678Ibeacon",
			ciphertext: shortKeyCiphertext,
			expect:     "5894860495860621506",
		},
		{
			name:       "full length key",
			input:      "2025-03-10T14:30:009876543210Ibeacon",
			ciphertext: realKeyCiphertext,
			expect:     "14017971391865670303",
		},
		{
			name:       "same key different timestamp",
			input:      "2025-03-10T14:30:019876543210Ibeacon",
			ciphertext: realKeyCiphertext,
			expect:     "15475710314411063804",
		},
	}

	for _, tc := range cases {
		fp, err := ComputeFingerprint(tc.input, tc.ciphertext)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if fp != tc.expect {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expect, fp)
		}
	}
}

func TestComputeFingerprintDeterministic(t *testing.T) {
	input := "2024-01-01T09:00:0012345678Ibeacon"

	first, err := ComputeFingerprint(input, shortKeyCiphertext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		fp, err := ComputeFingerprint(input, shortKeyCiphertext)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fp != first {
			t.Fatalf("fingerprint is not deterministic: %s vs %s", first, fp)
		}
	}
}

func TestComputeFingerprintIntermediateHash(t *testing.T) {
	// Двухэтапная схема: первые 8 байт SHA-256 от ключа подписи
	// используются little-endian как суффикс входа финального хеша
	mobileBytes := []byte{0x00, 0x01, 0x02, 0x03}

	intermediate := hashTail64(mobileBytes, fpConstantKey)
	if intermediate != 13260150749118487942 {
		t.Fatalf("expected intermediate hash 13260150749118487942, got %d", intermediate)
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], intermediate)
	final := hashTail64([]byte("2024-01-01T09:00:0012345678Ibeacon"), buf[:])
	if final != 5894860495860621506 {
		t.Fatalf("expected final hash 5894860495860621506, got %d", final)
	}
}

func TestComputeFingerprintErrors(t *testing.T) {
	cases := []struct {
		name       string
		ciphertext string
	}{
		{"empty ciphertext", ""},
		{"not base64", "%%%not-base64%%%"},
		{"wrong block size", "YWJj"},                   // 3 байта
		{"garbage blocks", "AAAAAAAAAAAAAAAAAAAAAA=="}, // валидный размер, кривой паддинг
		{"decrypts to non-hex", "PZ778dtThxOZYTG9svyuPQ=="},
		{"decrypts to odd hex length", "koKbBtUWimx2IZeAGrM49A=="},
	}

	for _, tc := range cases {
		if _, err := ComputeFingerprint("input", tc.ciphertext); err == nil {
			t.Fatalf("%s: expected error, got none", tc.name)
		}
	}
}
