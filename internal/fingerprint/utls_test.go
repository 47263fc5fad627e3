package fingerprint

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewTransport_Profiles(t *testing.T) {
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	// uTLS hellos may advertise h2; keep the test server on HTTP/1.1.
	ts.EnableHTTP2 = false
	ts.StartTLS()
	defer ts.Close()

	for _, name := range Profiles() {
		p := Profile(name)
		t.Run(name, func(t *testing.T) {
			tr, err := NewTransport(p, Options{InsecureSkipVerify: true})
			if err != nil {
				t.Fatalf("unexpected error creating transport for %s: %v", p, err)
			}
			if p == ProfileGo && tr.DialTLSContext != nil {
				t.Errorf("go profile should use the standard TLS dialer")
			}
			if p != ProfileGo && tr.DialTLSContext == nil {
				t.Errorf("%s profile should install a uTLS dialer", p)
			}

			client := &http.Client{Transport: tr}
			resp, err := client.Get(ts.URL)
			if err != nil {
				t.Fatalf("request with %s failed: %v", p, err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", resp.StatusCode)
			}
		})
	}
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{in: "", want: ProfileGo},
		{in: "go", want: ProfileGo},
		{in: " Chrome ", want: ProfileChrome},
		{in: "safari", want: ProfileSafari},
		{in: "netscape", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseProfile(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseProfile(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseProfile(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseProfile(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewTransport_Unknown(t *testing.T) {
	if _, err := NewTransport(Profile("netscape"), Options{}); err == nil {
		t.Errorf("expected error for unknown profile")
	}
}
