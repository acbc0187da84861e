package cache

import (
	"testing"
	"time"

	"github.com/tabfetch/tabfetch/models"
)

func TestKey_Distinguishes(t *testing.T) {
	a := Key("quotes", true, false)
	b := Key("quotes", false, false)
	c := Key("quotes", true, true)
	d := Key("indices", true, false)

	keys := map[string]struct{}{a: {}, b: {}, c: {}, d: {}}
	if len(keys) != 4 {
		t.Errorf("keys collide: %v %v %v %v", a, b, c, d)
	}

	if Key("quotes", true, false) != a {
		t.Error("key not deterministic")
	}
}

func TestGetSet(t *testing.T) {
	c := New(10, time.Minute)
	defer c.Close()

	key := Key("quotes", true, false)
	if _, hit := c.Get(key); hit {
		t.Fatal("unexpected hit on empty cache")
	}

	resp := &models.FetchResponse{Success: true, Site: "quotes"}
	c.Set(key, resp)

	got, hit := c.Get(key)
	if !hit || got.Site != "quotes" {
		t.Fatalf("Get = %+v, %v", got, hit)
	}
}

func TestGet_Expired(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	defer c.Close()

	key := Key("quotes", false, false)
	c.Set(key, &models.FetchResponse{Success: true})

	time.Sleep(25 * time.Millisecond)
	if _, hit := c.Get(key); hit {
		t.Error("expired entry still served")
	}
}

func TestSet_CapacityEviction(t *testing.T) {
	c := New(2, time.Minute)
	defer c.Close()

	c.Set("a", &models.FetchResponse{})
	c.Set("b", &models.FetchResponse{})
	c.Set("c", &models.FetchResponse{})

	hits := 0
	for _, k := range []string{"a", "b", "c"} {
		if _, hit := c.Get(k); hit {
			hits++
		}
	}
	if hits != 2 {
		t.Errorf("got %d live entries, want capacity 2", hits)
	}
}
