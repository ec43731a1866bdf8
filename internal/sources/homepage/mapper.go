package homepage

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// ErrNoLinks is returned when nothing in the document has an href.
var ErrNoLinks = errors.New("no valid links found in homepage document")

// Links flattens the document. Entries without href are skipped.
func Links(doc Document) ([]Link, error) {
	links := make([]Link, 0)

	for _, group := range doc {
		for _, groupName := range sortedKeys(group) {
			for _, item := range group[groupName] {
				for _, name := range sortedKeys(item) {
					node := item[name]
					href, err := hrefOf(&node)
					if err != nil {
						return nil, fmt.Errorf("%s/%s: %w", groupName, name, err)
					}
					if href == "" {
						continue
					}
					links = append(links, Link{Group: groupName, Title: name, Href: href})
				}
			}
		}
	}

	if len(links) == 0 {
		return nil, ErrNoLinks
	}
	return links, nil
}

// hrefOf handles both entry shapes. Bookmarks carry a single-element list.
func hrefOf(node *yaml.Node) (string, error) {
	switch node.Kind {
	case yaml.SequenceNode:
		var entries []BookmarkEntry
		if err := node.Decode(&entries); err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", nil
		}
		return entries[0].Href, nil
	case yaml.MappingNode:
		var props ServiceProps
		if err := node.Decode(&props); err != nil {
			return "", err
		}
		return props.Href, nil
	default:
		return "", nil
	}
}

// ToNewBookmarks turns links into insert payloads owned by userID. URLs are
// normalized and duplicates (after normalization) keep the first title.
func ToNewBookmarks(links []Link, userID string) []domain.NewBookmark {
	seen := make(map[string]struct{}, len(links))
	out := make([]domain.NewBookmark, 0, len(links))
	for _, l := range links {
		u := domain.NormalizeURL(l.Href)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, domain.NewBookmark{Title: l.Title, URL: u, UserID: userID})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
