package contracts

import (
	"testing"
	"time"
)

func TestSignalSet_Defined(t *testing.T) {
	set := NewSignalSet(time.Now())
	set.Scores["CCC"] = DefinedScore(-0.1)
	set.Scores["AAA"] = DefinedScore(0.3)
	set.Scores["BBB"] = Undefined()

	defined := set.Defined()
	if len(defined) != 2 || defined[0] != "AAA" || defined[1] != "CCC" {
		t.Errorf("Defined() = %v, want [AAA CCC]", defined)
	}
	if set.AllUndefined() {
		t.Error("AllUndefined() = true, want false")
	}
	if set.Get("ZZZ").Defined {
		t.Error("missing symbol should be undefined")
	}
}

func TestSignalSet_AllUndefined(t *testing.T) {
	set := NewSignalSet(time.Now())
	if !set.AllUndefined() {
		t.Error("empty set should be all-undefined")
	}

	set.Scores["AAA"] = Undefined()
	if !set.AllUndefined() {
		t.Error("set with only undefined scores should be all-undefined")
	}
}

func TestUniverseSnapshot_Contains(t *testing.T) {
	u := &UniverseSnapshot{
		Symbols:  []string{"AAA", "BBB", "DDD"},
		Excluded: map[string]string{"CCC": "delisted"},
	}

	if !u.Contains("BBB") || u.Contains("CCC") {
		t.Error("Contains() mismatch")
	}
	if excluded, reason := u.IsExcluded("CCC"); !excluded || reason != "delisted" {
		t.Errorf("IsExcluded(CCC) = %v, %q", excluded, reason)
	}
	if u.Count() != 3 {
		t.Errorf("Count() = %d, want 3", u.Count())
	}
}

func TestSelection_SideOf(t *testing.T) {
	s := &Selection{Long: []string{"AAA"}, Short: []string{"CCC"}}

	if side, ok := s.SideOf("AAA"); !ok || side != SideLong {
		t.Errorf("SideOf(AAA) = %v, %v", side, ok)
	}
	if side, ok := s.SideOf("CCC"); !ok || side != SideShort {
		t.Errorf("SideOf(CCC) = %v, %v", side, ok)
	}
	if _, ok := s.SideOf("BBB"); ok {
		t.Error("BBB should not be selected")
	}
	if s.Empty() {
		t.Error("Empty() = true, want false")
	}
}

func TestStage_ShortName(t *testing.T) {
	stages := AllStages()
	if len(stages) != 8 {
		t.Fatalf("AllStages() len = %d, want 8", len(stages))
	}
	for i, stage := range stages {
		want := "S" + string(rune('0'+i))
		if stage.ShortName() != want {
			t.Errorf("%s.ShortName() = %s, want %s", stage, stage.ShortName(), want)
		}
	}
}
