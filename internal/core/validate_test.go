package core

import (
	"errors"
	"math"
	"testing"
)

func grupo1Payload(line, date string, value float64) map[string]any {
	p := map[string]any{
		"linhaProducao": line,
		"dataColeta":    date,
	}
	for _, f := range Spec(Grupo1).Fields {
		p[f.Name] = value
	}
	return p
}

func TestParseCreate(t *testing.T) {
	g1 := Spec(Grupo1)

	t.Run("all measurement fields set, optionals defaulted", func(t *testing.T) {
		rec, err := g1.ParseCreate(grupo1Payload("L90", "2024-05-10", 1.5))
		if err != nil {
			t.Fatalf("ParseCreate failed: %v", err)
		}
		if rec.Line != "L90" || rec.Date != "2024-05-10" {
			t.Errorf("line/date = %s/%s", rec.Line, rec.Date)
		}
		if rec.SKU != "" || rec.BagWeight != 0 || rec.PanelParam != 0 || rec.Acrisson != 0 {
			t.Errorf("optionals should default: sku=%q peso=%v painel=%v acrisson=%v",
				rec.SKU, rec.BagWeight, rec.PanelParam, rec.Acrisson)
		}
		if len(rec.Measures) != 18 {
			t.Fatalf("measures = %d, want 18", len(rec.Measures))
		}
		for name, v := range rec.Measures {
			if v != 1.5 {
				t.Errorf("measure %s = %v, want 1.5", name, v)
			}
		}
	})

	t.Run("missing measurement field", func(t *testing.T) {
		p := grupo1Payload("L90", "2024-05-10", 1)
		delete(p, "surge")
		_, err := g1.ParseCreate(p)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		if len(verr.Fields) != 1 || verr.Fields[0].Field != "surge" || verr.Fields[0].Reason != "required" {
			t.Errorf("fields = %+v", verr.Fields)
		}
	})

	t.Run("collects every failed field", func(t *testing.T) {
		p := grupo1Payload("L84", "10/05/2024", 1)
		p["bead"] = -1.0
		p["surge"] = "fast"
		_, err := g1.ParseCreate(p)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		got := map[string]string{}
		for _, f := range verr.Fields {
			got[f.Field] = f.Reason
		}
		for _, field := range []string{"linhaProducao", "dataColeta", "bead", "surge"} {
			if _, ok := got[field]; !ok {
				t.Errorf("expected a failure for %s, got %v", field, got)
			}
		}
	})

	t.Run("non-finite number rejected", func(t *testing.T) {
		p := grupo1Payload("L90", "2024-05-10", 1)
		p["pesoSacolaVarpe"] = math.NaN()
		if _, err := g1.ParseCreate(p); err == nil {
			t.Error("NaN should fail validation")
		}
	})
}

func TestParseUpdate(t *testing.T) {
	g2 := Spec(Grupo2)

	t.Run("partial fields pass through", func(t *testing.T) {
		fields, err := g2.ParseUpdate(map[string]any{
			"sku":         "XYZ",
			"waistPacker": 3.25,
		})
		if err != nil {
			t.Fatalf("ParseUpdate failed: %v", err)
		}
		if fields["sku"] != "XYZ" || fields["waistPacker"] != 3.25 {
			t.Errorf("fields = %+v", fields)
		}
	})

	t.Run("immutable and unknown keys ignored", func(t *testing.T) {
		fields, err := g2.ParseUpdate(map[string]any{
			"id":        99.0,
			"createdAt": "2024-01-01T00:00:00Z",
			"nonsense":  true,
			"matFix":    1.0,
		})
		if err != nil {
			t.Fatalf("ParseUpdate failed: %v", err)
		}
		if len(fields) != 1 {
			t.Errorf("only matFix should survive, got %+v", fields)
		}
	})

	t.Run("line from the other group rejected", func(t *testing.T) {
		_, err := g2.ParseUpdate(map[string]any{"linhaProducao": "L90"})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("bad date rejected", func(t *testing.T) {
		if _, err := g2.ParseUpdate(map[string]any{"dataColeta": "2024-13-40"}); err == nil {
			t.Error("impossible date should fail")
		}
	})
}

func TestCheckWriteDate(t *testing.T) {
	if err := CheckWriteDate(Today()); err != nil {
		t.Errorf("today must pass the gate: %v", err)
	}

	var werr *DateWriteError
	err := CheckWriteDate("2000-01-01")
	if !errors.As(err, &werr) {
		t.Fatalf("stale date should fail with DateWriteError, got %v", err)
	}
	if werr.Today != Today() {
		t.Errorf("DateWriteError.Today = %s, want %s", werr.Today, Today())
	}
}
