package sources_test

import (
	"testing"

	"readout/internal/sources"
)

func TestAccept(t *testing.T) {
	global := []string{"ai"}
	cases := []struct {
		name     string
		title    string
		summary  string
		keywords []string
		want     bool
	}{
		{"global keyword matches", "AI breakthroughs in robotics", "", []string{"node"}, true},
		{"source keyword matches", "Node 22 released", "", []string{"node"}, true},
		{"no match rejected", "Weather report", "", []string{"node"}, false},
		{"wildcard accepts all", "Weather report", "", []string{"*"}, true},
		{"summary is searched", "Brief", "new node runtime", []string{"node"}, true},
		{"case insensitive", "NODE news", "", []string{"node"}, true},
		{"empty keyword sets reject", "Anything", "", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sources.Accept(tc.title, tc.summary, tc.keywords, global)
			if got != tc.want {
				t.Fatalf("Accept(%q) = %v, want %v", tc.title, got, tc.want)
			}
		})
	}
}

func TestAcceptIgnoresWildcardInGlobals(t *testing.T) {
	if sources.Accept("Anything", "", []string{"node"}, []string{"*"}) {
		t.Fatal("wildcard in the global set must not accept everything")
	}
}
