package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const exampleZone = `$ORIGIN example.com.
$TTL 3600
@ IN SOA ns1.example.com. admin.example.com. 1 7200 3600 1209600 3600
@ IN NS ns1.example.com.
www IN A 1.2.3.4
; end
`

func writeZone(t *testing.T, text string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "example.zone")
	if err := os.WriteFile(name, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	return name
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	testChdir(t, t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	code := execute(context.Background(), cmd, &out)
	return code, out.String()
}

func TestDryRun(t *testing.T) {
	code, out := runCLI(t, "-n", "-f", writeZone(t, exampleZone))
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d: %s", code, out)
	}
	for _, want := range []string{
		"domains:\n  - example.com\n  - www.example.com\n",
		"data: ns1.liquidns.net\n",
		"data: 1.2.3.4\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "type: SOA") {
		t.Errorf("SOA record in plan:\n%s", out)
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "missing file option", args: []string{"-u", "user", "-p", "pass"}, code: 2},
		{name: "unknown flag", args: []string{"--bogus"}, code: 2},
		{name: "unreadable file", args: []string{"-n", "-f", "/nonexistent/example.zone"}, code: 1},
		{name: "malformed header", args: []string{"-n", "-f", "HEADER"}, code: 1},
		{name: "cancelled", args: []string{"-v", "-n", "-f", "ZONE"}, code: 2},
		{name: "confirmation skipped", args: []string{"-v", "-y", "-n", "-f", "ZONE"}, code: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for i, arg := range test.args {
				switch arg {
				case "ZONE":
					test.args[i] = writeZone(t, exampleZone)
				case "HEADER":
					test.args[i] = writeZone(t, "$ORIGIN\n$TTL 3600\n\n")
				}
			}
			code, out := runCLI(t, test.args...)
			if code != test.code {
				t.Errorf("Expected exit code %d, got %d: %s", test.code, code, out)
			}
		})
	}
}

// liquidnsStub accepts any login and records the write calls it receives.
type liquidnsStub struct {
	mu    sync.Mutex
	calls []string
}

func (s *liquidnsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/accounts/login/":
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "token", Path: "/"})
		if r.Method == http.MethodPost {
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "session", Path: "/"})
		}
	case "/api/v2/domains/", "/api/v2/records/":
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.calls = append(s.calls, r.URL.Path+" "+r.PostForm.Get("domain")+" "+r.PostForm.Get("record"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}
}

func TestPushToProvider(t *testing.T) {
	stub := &liquidnsStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	code, out := runCLI(t, "-u", "user", "-p", "pass", "--parallel", "1",
		"--api-url", srv.URL, "-f", writeZone(t, exampleZone))
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d: %s", code, out)
	}
	expected := []string{
		"/api/v2/domains/ example.com ",
		"/api/v2/domains/ www.example.com ",
		"/api/v2/records/ example.com ns1.liquidns.net",
		"/api/v2/records/ www.example.com 1.2.3.4",
	}
	if len(stub.calls) != len(expected) {
		t.Fatalf("Expected %d calls, got %v", len(expected), stub.calls)
	}
	for i := range expected {
		if stub.calls[i] != expected[i] {
			t.Errorf("call %d: expected %q, got %q", i, expected[i], stub.calls[i])
		}
	}
}
