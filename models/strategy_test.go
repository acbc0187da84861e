package models

import "testing"

func TestParseStrategy(t *testing.T) {
	for _, tag := range []string{"api_json", "js_object", "dom_table", "dom_browser", "csv", "xml"} {
		if _, err := ParseStrategy(tag); err != nil {
			t.Errorf("ParseStrategy(%q) failed: %v", tag, err)
		}
	}
	for _, tag := range []string{"", "API_JSON", "scraping", "dom"} {
		if _, err := ParseStrategy(tag); err == nil {
			t.Errorf("ParseStrategy(%q) should fail", tag)
		}
	}
}

func TestFallbackFrom(t *testing.T) {
	order := FallbackFrom(StrategyCSV)
	if order[0] != StrategyCSV {
		t.Errorf("declared strategy must come first: %v", order)
	}
	if len(order) != len(DefaultFallbackOrder) {
		t.Errorf("chain length = %d, want %d", len(order), len(DefaultFallbackOrder))
	}
	seen := make(map[Strategy]bool)
	for _, s := range order {
		if seen[s] {
			t.Errorf("strategy %v repeated", s)
		}
		seen[s] = true
	}
}

func TestDefaultFallbackOrder_NeverImpliesBrowser(t *testing.T) {
	want := []Strategy{StrategyAPIJSON, StrategyJSObject, StrategyDOMTable, StrategyCSV, StrategyXML}
	if len(DefaultFallbackOrder) != len(want) {
		t.Fatalf("order = %v, want %v", DefaultFallbackOrder, want)
	}
	for i, s := range want {
		if DefaultFallbackOrder[i] != s {
			t.Errorf("order[%d] = %v, want %v", i, DefaultFallbackOrder[i], s)
		}
	}
}

func TestFallbackFrom_DeclaredBrowserLeads(t *testing.T) {
	order := FallbackFrom(StrategyDOMBrowser)
	if order[0] != StrategyDOMBrowser {
		t.Fatalf("declared strategy must come first: %v", order)
	}
	if len(order) != len(DefaultFallbackOrder)+1 {
		t.Errorf("chain = %v, want declared plus the default order", order)
	}
	for _, s := range order[1:] {
		if s == StrategyDOMBrowser {
			t.Errorf("dom_browser repeated: %v", order)
		}
	}
}

func TestIsBrowserBased(t *testing.T) {
	if !StrategyDOMBrowser.IsBrowserBased() {
		t.Error("dom_browser is browser based")
	}
	for _, s := range []Strategy{StrategyAPIJSON, StrategyJSObject, StrategyDOMTable, StrategyCSV, StrategyXML} {
		if s.IsBrowserBased() {
			t.Errorf("%v is not browser based", s)
		}
	}
}

func TestScrapeResult_Succeeded(t *testing.T) {
	var nilResult *ScrapeResult
	if nilResult.Succeeded() {
		t.Error("nil result cannot have succeeded")
	}

	empty := &ScrapeResult{Chosen: StrategyCSV, Table: &Table{Columns: []string{"a"}}}
	if empty.Succeeded() {
		t.Error("empty table is not a success")
	}

	ok := &ScrapeResult{
		Chosen: StrategyCSV,
		Table:  &Table{Columns: []string{"a"}, Rows: [][]string{{"1"}}},
	}
	if !ok.Succeeded() {
		t.Error("non-empty chosen table is a success")
	}
}

func TestTable_RenameColumns(t *testing.T) {
	table := &Table{Columns: []string{"t", "c", "keep"}}
	table.RenameColumns(map[string]string{"t": "date", "c": "close"})
	want := []string{"date", "close", "keep"}
	for i, col := range want {
		if table.Columns[i] != col {
			t.Errorf("column %d = %q, want %q", i, table.Columns[i], col)
		}
	}
}

func TestFetchRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     FetchRequest
		wantErr bool
	}{
		{"site id only", FetchRequest{SiteID: "quotes"}, false},
		{"url only", FetchRequest{URL: "https://x.example/t"}, false},
		{"both", FetchRequest{SiteID: "quotes", URL: "https://x.example"}, true},
		{"neither", FetchRequest{}, true},
		{"negative timeout", FetchRequest{SiteID: "quotes", Timeout: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
