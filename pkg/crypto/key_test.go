package crypto

import (
	"strings"
	"sync"
	"testing"
)

func TestNewKeyGenerator(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty uses default", input: ""},
		{name: "minimum size", input: "ABCDEFGH"},
		{name: "maximum size", input: strings.Repeat("a", 255)},
		{name: "too short", input: "ABC", wantErr: ErrAlphabetTooShort},
		{name: "too long", input: strings.Repeat("a", 256), wantErr: ErrAlphabetTooLong},
		{name: "non ascii", input: "ABCDEFGHé", wantErr: ErrAlphabetNotASCII},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Act
			g, err := NewKeyGenerator(test.input)

			// Assert
			if err != test.wantErr {
				t.Fatalf("NewKeyGenerator() error = %v, want %v", err, test.wantErr)
			}
			if test.wantErr == nil && g == nil {
				t.Fatal("NewKeyGenerator() returned nil")
			}
		})
	}
}

func TestMaskFor(t *testing.T) {
	tests := []struct {
		n    int
		want byte
	}{
		{n: 8, want: 7},
		{n: 9, want: 15},
		{n: 16, want: 15},
		{n: 17, want: 31},
		{n: 64, want: 63},
		{n: 65, want: 127},
		{n: 255, want: 255},
	}

	for _, test := range tests {
		if got := maskFor(test.n); got != test.want {
			t.Errorf("maskFor(%d) = %d, want %d", test.n, got, test.want)
		}
	}
}

func TestKeyGenerator_Generate(t *testing.T) {
	tests := []struct {
		name     string
		alphabet string
		length   int
		wantLen  int
	}{
		{name: "default length", length: 0, wantLen: DefaultKeyLength},
		{name: "single char", length: 1, wantLen: 1},
		{name: "custom alphabet", alphabet: "0123456789", length: 64, wantLen: 64},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			g, _ := NewKeyGenerator(test.alphabet)
			allowed := test.alphabet
			if allowed == "" {
				allowed = keyAlphabet
			}

			// Act
			key, err := g.Generate(test.length)

			// Assert
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if len(key) != test.wantLen {
				t.Errorf("len = %d, want %d", len(key), test.wantLen)
			}
			for _, r := range key {
				if !strings.ContainsRune(allowed, r) {
					t.Fatalf("character %q not in alphabet", r)
				}
			}
		})
	}
}

func TestGenerateKey_Unique(t *testing.T) {
	// Arrange
	const n = 200
	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := make(map[string]bool, n)

	// Act
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := GenerateKey()
			if err != nil {
				t.Errorf("GenerateKey() error = %v", err)
				return
			}
			mu.Lock()
			seen[key] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Assert
	if len(seen) != n {
		t.Errorf("generated %d unique keys, want %d", len(seen), n)
	}
}

func TestHashToken(t *testing.T) {
	// Act
	h1 := HashToken("admin-key")
	h2 := HashToken("admin-key")
	h3 := HashToken("admin-kez")

	// Assert
	if h1 != h2 {
		t.Error("HashToken() should be deterministic")
	}
	if h1 == h3 {
		t.Error("different keys should hash differently")
	}
	if len(h1) != 64 {
		t.Errorf("HashToken() length = %d, want 64", len(h1))
	}
}
