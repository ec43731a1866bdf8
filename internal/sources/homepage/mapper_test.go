package homepage

import (
	"errors"
	"strings"
	"testing"
)

func mustDecode(t *testing.T, src string) Document {
	t.Helper()
	doc, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return doc
}

func TestLinksFromBookmarks(t *testing.T) {
	links, err := Links(mustDecode(t, bookmarksYAML))
	if err != nil {
		t.Fatalf("Links() error = %v", err)
	}

	want := []Link{
		{Group: "Developer", Title: "Github", Href: "https://github.com/"},
		{Group: "Developer", Title: "Go Docs", Href: "go.dev/doc"},
		{Group: "Social", Title: "Reddit", Href: "https://reddit.com/"},
	}
	if len(links) != len(want) {
		t.Fatalf("Links() = %+v, want %d links", links, len(want))
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("Links()[%d] = %+v, want %+v", i, links[i], want[i])
		}
	}
}

func TestLinksFromServicesSkipsEmptyHref(t *testing.T) {
	links, err := Links(mustDecode(t, servicesYAML))
	if err != nil {
		t.Fatalf("Links() error = %v", err)
	}
	if len(links) != 1 || links[0].Title != "AdGuard Home" || links[0].Href != "https://adguard.domain.ext" {
		t.Errorf("Links() = %+v", links)
	}
}

func TestLinksNoneFound(t *testing.T) {
	doc := mustDecode(t, "- Empty:\n    - Nothing:\n        icon: x.svg\n")
	if _, err := Links(doc); !errors.Is(err, ErrNoLinks) {
		t.Errorf("Links() error = %v, want ErrNoLinks", err)
	}
}

func TestToNewBookmarks(t *testing.T) {
	links := []Link{
		{Title: "Go", Href: "go.dev"},
		{Title: "Go again", Href: "https://go.dev"},
		{Title: "Plain", Href: "http://example.com"},
	}

	got := ToNewBookmarks(links, "alice")

	if len(got) != 2 {
		t.Fatalf("ToNewBookmarks() = %+v, want 2 after dedupe", got)
	}
	if got[0].URL != "https://go.dev" || got[0].Title != "Go" || got[0].UserID != "alice" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].URL != "http://example.com" {
		t.Errorf("second = %+v, want http scheme kept", got[1])
	}
	for _, nb := range got {
		if err := nb.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v", nb, err)
		}
	}
}
