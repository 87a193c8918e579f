package core

import (
	"testing"
)

func TestParsePURL(t *testing.T) {
	tests := []struct {
		input    string
		wantType string
		wantName string
		wantVer  string
		wantFull string
		wantErr  bool
	}{
		{"pkg:nuget/Widgets", "nuget", "Widgets", "", "Widgets", false},
		{"pkg:nuget/Widgets@2.4.0", "nuget", "Widgets", "2.4.0", "Widgets", false},
		{"pkg:nuget/Newtonsoft.Json@13.0.3", "nuget", "Newtonsoft.Json", "13.0.3", "Newtonsoft.Json", false},
		{"pkg:folder/Widgets@1.0", "folder", "Widgets", "1.0", "Widgets", false},

		// Errors
		{"nuget/Widgets", "", "", "", "", true}, // missing pkg: prefix
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			if p.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", p.Type, tt.wantType)
			}
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name, tt.wantName)
			}
			if p.Version != tt.wantVer {
				t.Errorf("Version = %q, want %q", p.Version, tt.wantVer)
			}
			if p.FullName() != tt.wantFull {
				t.Errorf("FullName() = %q, want %q", p.FullName(), tt.wantFull)
			}
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate("pkg:nuget/Widgets@2.4")
	if err != nil {
		t.Fatalf("ParseCoordinate error = %v", err)
	}
	if c.ID != "Widgets" || c.Version.Normalized() != "2.4.0" {
		t.Errorf("got %s, want Widgets@2.4.0", c)
	}

	if _, err := ParseCoordinate("pkg:nuget/Widgets"); err == nil {
		t.Error("expected error for PURL without version")
	}
	if _, err := ParseCoordinate("pkg:nuget/Widgets@not.a.version"); err == nil {
		t.Error("expected error for invalid version")
	}
}

func TestPURLString(t *testing.T) {
	c := MustCoordinate("Widgets", "2.4")
	if got := PURLString(c); got != "pkg:nuget/Widgets@2.4.0" {
		t.Errorf("PURLString = %q", got)
	}
}

func TestPURLFeedQualifier(t *testing.T) {
	p, err := ParsePURL("pkg:nuget/Widgets@1.0?repository_url=https://feed.example.com/v3")
	if err != nil {
		t.Fatal(err)
	}
	name, base := p.Feed()
	if name != "nuget" {
		t.Errorf("feed = %q", name)
	}
	if base != "https://feed.example.com/v3" {
		t.Errorf("base = %q", base)
	}
}
