package homepage

import "gopkg.in/yaml.v3"

// Document is the shared shape of Homepage's bookmarks.yaml and services.yaml:
//
//	- Group:
//	    - Name: <entry>
//
// In bookmarks.yaml <entry> is a list holding one BookmarkEntry; in
// services.yaml it is a ServiceProps mapping. The node is kept raw and
// decoded once its kind is known.
type Document []map[string][]map[string]yaml.Node

// BookmarkEntry is one bookmarks.yaml item.
type BookmarkEntry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// ServiceProps are the services.yaml fields smartmark reads.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Link is one importable entry, in document order.
type Link struct {
	Group string
	Title string
	Href  string
}
