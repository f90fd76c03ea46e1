package locale

import (
	"reflect"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		prefs    []string
		expected language.Tag
	}{
		{"empty", nil, language.English},
		{"unknown", []string{"ja"}, language.English},
		{"garbage", []string{"!!"}, language.English},
		{"portuguese", []string{"pt"}, language.BrazilianPortuguese},
		{"brazil", []string{"pt-BR"}, language.BrazilianPortuguese},
		{"accept language header", []string{"de-DE,de;q=0.9,en;q=0.8"}, language.German},
		{"query before header", []string{"fr", "de-DE,de;q=0.9"}, language.French},
		{"unsupported query falls through", []string{"ja", "es-ES,es;q=0.9"}, language.Spanish},
		{"italian", []string{"it-IT"}, language.Italian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.prefs...)
			if got.Tag != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got.Tag)
			}
		})
	}
}

// Every language must fill every string.
func TestCatalogComplete(t *testing.T) {
	for _, tag := range Supported() {
		m := Lookup(tag)
		if m == nil {
			t.Fatalf("Missing messages for %v", tag)
		}
		for _, v := range []interface{}{m.Certificate, m.Page} {
			rv := reflect.ValueOf(v)
			for i := 0; i < rv.NumField(); i++ {
				if rv.Field(i).String() == "" {
					t.Errorf("%v: %s.%s is empty", tag, rv.Type().Name(), rv.Type().Field(i).Name)
				}
			}
		}
	}
	if Lookup(language.Japanese) != nil {
		t.Error("Expected nil for unsupported language")
	}
}

func TestDateFormatter(t *testing.T) {
	at := time.Date(2024, 6, 1, 15, 30, 5, 0, time.UTC)
	tests := []struct {
		format   string
		timezone string
		is12Hour bool
		expected string
	}{
		{"", "", false, "06/01/2024, 15:30:05 GMT +00:00"},
		{"MM/DD/YYYY", "UTC", true, "06/01/2024, 03:30:05 PM GMT +00:00"},
		{"DD/MM/YYYY", "America/Sao_Paulo", false, "01/06/2024, 12:30:05 GMT -03:00"},
		{"YYYY-MM-DD", "Asia/Kolkata", false, "2024-06-01, 21:00:05 GMT +05:30"},
		{"LL", "", false, "June 01, 2024, 15:30:05 GMT +00:00"},
		{"DD MMM, YYYY", "", false, "01 Jun, 2024, 15:30:05 GMT +00:00"},
		{"DD.MM.YYYY", "Europe/Berlin", true, "01.06.2024, 05:30:05 PM GMT +02:00"},
		{"bogus", "Not/AZone", false, "06/01/2024, 15:30:05 GMT +00:00"},
	}
	for _, tt := range tests {
		got := NewDateFormatter(tt.format, tt.timezone, tt.is12Hour).Format(at)
		if got != tt.expected {
			t.Errorf("%q %q: Expected %q, got %q", tt.format, tt.timezone, tt.expected, got)
		}
	}
}

func TestFormatPtr(t *testing.T) {
	f := NewDateFormatter("", "", false)
	if got := f.FormatPtr(nil, "N/A"); got != "N/A" {
		t.Errorf("Expected N/A, got %s", got)
	}
}
