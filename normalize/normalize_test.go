package normalize

import (
	"strconv"
	"testing"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
		ok   bool
	}{
		{"plain", "1234.56", 1234.56, true},
		{"dollar with thousands", "$1,234.56", 1234.56, true},
		{"euro", "€45.20", 45.20, true},
		{"pound", "£9.99", 9.99, true},
		{"parenthesized negative", "(500)", -500, true},
		{"parenthesized with symbol", "($1,250.00)", -1250, true},
		{"minus sign", "-12.5", -12.5, true},
		{"plus sign", "+3.4", 3.4, true},
		{"thousands suffix", "1.5K", 1500, true},
		{"millions suffix", "1.5M", 1500000, true},
		{"billions suffix", "2B", 2e9, true},
		{"trillions suffix", "1.2T", 1.2e12, true},
		{"lowercase suffix", "3.2m", 3200000, true},
		{"whitespace", "  42.0  ", 42, true},
		{"empty", "", 0, false},
		{"dash sentinel", "-", 0, false},
		{"na sentinel", "N/A", 0, false},
		{"garbage", "hello", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Price(tt.in)
			if ok != tt.ok {
				t.Fatalf("Price(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Price(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrice_Idempotent(t *testing.T) {
	// Feeding a normalized value back through produces the same value.
	inputs := []string{"$1,234.56", "(500)", "1.5M", "42"}
	for _, in := range inputs {
		first, ok := Price(in)
		if !ok {
			t.Fatalf("Price(%q) failed", in)
		}
		second, ok := Price(strconv.FormatFloat(first, 'f', -1, 64))
		if !ok || second != first {
			t.Errorf("Price not idempotent for %q: %v then %v", in, first, second)
		}
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"15.5%", 15.5, true},
		{"-2.31%", -2.31, true},
		{"+0.8%", 0.8, true},
		{"(1.2%)", -1.2, true},
		{"100", 100, true},
		{"—", 0, false},
	}
	for _, tt := range tests {
		got, ok := Percentage(tt.in)
		if ok != tt.ok {
			t.Errorf("Percentage(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Percentage(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNumber(t *testing.T) {
	got, ok := Number("12,345,678")
	if !ok || got != 12345678 {
		t.Errorf("Number(12,345,678) = %v, %v", got, ok)
	}
	got, ok = Number("45.2M")
	if !ok || got != 45200000 {
		t.Errorf("Number(45.2M) = %v, %v", got, ok)
	}
}

func TestTicker(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"aapl", "AAPL", true},
		{"$TSLA", "TSLA", true},
		{"  brk.b ", "BRK.B", true},
		{"", "", false},
		{"n/a", "", false},
	}
	for _, tt := range tests {
		got, ok := Ticker(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Ticker(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-15", "2024-01-15", true},
		{"01/15/2024", "2024-01-15", true},
		{"Jan 2, 2024", "2024-01-02", true},
		{"2024-01-15T09:30:00Z", "2024-01-15", true},
		{"15 March 2023", "2023-03-15", true},
		{"not a date", "", false},
		{"--", "", false},
	}
	for _, tt := range tests {
		got, ok := Date(tt.in)
		if ok != tt.ok {
			t.Errorf("Date(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Date(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDate_ISORoundTrip(t *testing.T) {
	in := "2024-06-30"
	got, ok := Date(in)
	if !ok || got != in {
		t.Errorf("ISO date did not round-trip: got %q, %v", got, ok)
	}
}

func TestIsNull(t *testing.T) {
	for _, s := range []string{"", "-", "--", "—", "N/A", "na", "NaN", "null", "None", "  "} {
		if !IsNull(s) {
			t.Errorf("IsNull(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"0", "0.0", "AAPL", "false"} {
		if IsNull(s) {
			t.Errorf("IsNull(%q) = true, want false", s)
		}
	}
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1,234.56", "USD"},
		{"€45.20", "EUR"},
		{"£9.99", "GBP"},
		{"HK$120", "HKD"},
		{"¥1000", "JPY"},
		{"1234.56", ""},
	}
	for _, tt := range tests {
		if got := DetectCurrency(tt.in); got != tt.want {
			t.Errorf("DetectCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
