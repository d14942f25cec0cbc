package headers

import (
	"net/http"
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	in := []string{"User-Agent: Bot", "Accept: text/html", "BadHeader", ": empty"}
	out := ParseHeaders(in)
	expected := map[string]string{"User-Agent": "Bot", "Accept": "text/html"}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestApply(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	req.Header.Set("User-Agent", "default")

	Apply(req, map[string]string{"User-Agent": "Bot", "Accept-Language": "fr"})

	if got := req.Header.Get("User-Agent"); got != "Bot" {
		t.Errorf("User-Agent = %q", got)
	}
	if got := req.Header.Get("Accept-Language"); got != "fr" {
		t.Errorf("Accept-Language = %q", got)
	}
}
