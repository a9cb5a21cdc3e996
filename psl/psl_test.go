package psl

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistrable(t *testing.T) {
	c := New()
	tests := []struct {
		apex    string
		want    string
		wantErr bool
	}{
		{apex: "example.com.", want: "example.com."},
		{apex: "www.example.com", want: "example.com."},
		{apex: "example.co.uk.", want: "example.co.uk."},
		{apex: "Example.COM.", want: "example.com."},
		{apex: "com.", wantErr: true},
		{apex: "co.uk.", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.apex, func(t *testing.T) {
			got, err := c.Registrable(test.apex)
			if test.wantErr {
				if !errors.Is(err, ErrPublicSuffix) {
					t.Errorf("Expected ErrPublicSuffix, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != test.want {
				t.Errorf("Expected %s, got %s", test.want, got)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	list := `// ===BEGIN ICANN DOMAINS===
test
zone.test
// ===END ICANN DOMAINS===
`
	c, err := Load(strings.NewReader(list))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := c.Registrable("a.b.zone.test.")
	if err != nil {
		t.Fatal(err)
	}
	if got != "b.zone.test." {
		t.Errorf("Expected b.zone.test., got %s", got)
	}
	if _, err := c.Registrable("zone.test."); !errors.Is(err, ErrPublicSuffix) {
		t.Errorf("Expected ErrPublicSuffix, got %v", err)
	}
}
