package pager_test

import (
	"testing"

	"github.com/Sean-Leishman/CloaksDB/internal/storage/pager"
)

func TestLocaleKeyerOrdersAccentsWithBaseLetter(t *testing.T) {
	lk, err := pager.NewLocaleKeyer("fr")
	if err != nil {
		t.Fatalf("NewLocaleKeyer: %v", err)
	}

	cafe := lk.Key("cafe")
	cafeAccent := lk.Key("café")
	cZ := lk.Key("cz")

	if !(cafe < cZ && cafeAccent < cZ) {
		t.Fatalf("expected both cafe spellings to sort before cz under French collation")
	}
}

func TestLocaleKeyerRejectsBadTag(t *testing.T) {
	if _, err := pager.NewLocaleKeyer("not-a-locale-tag-!!"); err == nil {
		t.Fatal("expected an error for a malformed locale tag")
	}
}
