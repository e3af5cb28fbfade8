package leadquery

import (
	"strings"
	"testing"
)

func TestDecodePageCanonicalShape(t *testing.T) {
	body := `{"items":[{"Id":"a"}],"page":2,"page_size":10,"total":21,"total_pages":3}`

	data, err := decodePage(strings.NewReader(body), 1, 25)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(data.Raws) != 1 || data.Raws[0].ID != "a" {
		t.Errorf("unexpected items: %+v", data.Raws)
	}
	if data.Page != 2 || data.PageSize != 10 || data.Total != 21 || data.TotalPages != 3 {
		t.Errorf("unexpected counters: %+v", data)
	}
}

func TestDecodePageVariantKeys(t *testing.T) {
	body := `{"data":[{"Id":"a"},{"Id":"b"}],"page_number":3,"pageSize":50,"count":120,"totalPages":4}`

	data, err := decodePage(strings.NewReader(body), 1, 25)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(data.Raws) != 2 {
		t.Errorf("data key variant not honored: %+v", data.Raws)
	}
	if data.Page != 3 || data.PageSize != 50 || data.Total != 120 || data.TotalPages != 4 {
		t.Errorf("unexpected counters: %+v", data)
	}
}

func TestDecodePageDerivesTotalPages(t *testing.T) {
	body := `{"items":[],"page":1,"page_size":25,"total":26}`

	data, err := decodePage(strings.NewReader(body), 1, 25)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data.TotalPages != 2 {
		t.Errorf("expected derived total_pages 2, got %d", data.TotalPages)
	}
}

func TestDecodePageFallbacks(t *testing.T) {
	body := `{"items":[]}`

	data, err := decodePage(strings.NewReader(body), 4, 25)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data.Page != 4 || data.PageSize != 25 {
		t.Errorf("expected request fallbacks, got %+v", data)
	}
}

func TestDecodePageMalformed(t *testing.T) {
	if _, err := decodePage(strings.NewReader("{broken"), 1, 25); err == nil {
		t.Fatal("expected decode error")
	}
}
