package excel

import "coleta/internal/core"

// HeaderGroup describes one block of the two-row header. A group with Subs
// merges horizontally on the top row and labels each column on the second
// row; a group without Subs is a single column merged across both rows.
// Groups cover the measurement columns in field order.
type HeaderGroup struct {
	Label string
	Subs  []string
}

// Span is the number of measurement columns the group occupies.
func (h HeaderGroup) Span() int {
	if len(h.Subs) == 0 {
		return 1
	}
	return len(h.Subs)
}

// The three leading columns shared by both sheets: production line (no
// label), SKU and bag weight.
var baseHeaders = []string{"", "SKU", "PESO SACOLA\nVARPE"}

var baseWidths = []float64{8, 12, 12}

// headerLayout returns the merge descriptors for a group's header block.
// Related fields share a banner (CORE over attach/wrap, ELÁSTICO over
// leg/cuff, CORE WRAP over wrap/side seal); everything else stands alone
// under its own field header.
func headerLayout(spec *core.GroupSpec) []HeaderGroup {
	switch spec.Group {
	case core.Grupo1:
		return []HeaderGroup{
			{Label: "VELOCIDADE\nDA LINHA"},
			{Label: "CORE", Subs: []string{"ATTACH\n(ADESIVO\nCENTRAL)", "WRAP\n(ADESIVO\nLATERAL)"}},
			{Label: "SURGE"},
			{Label: "CUFF END"},
			{Label: "BEAD"},
			{Label: "ELÁSTICO", Subs: []string{"LEG\n(PERNA)", "CUFF"}},
			{Label: "TEMPORARY"},
			{Label: "TOPSHEET\n(NON\nWOVEN)"},
			{Label: "BACKSHEET\n(POLY)"},
			{Label: "FRONTAL"},
			{Label: "EAR\nATTACH"},
			{Label: "PULP FIX"},
			{Label: "CENTRAL"},
			{Label: "RELEASE"},
			{Label: "TAPE ON\nBAG"},
			{Label: "FILME 1X1"},
		}
	case core.Grupo2:
		return []HeaderGroup{
			{Label: "VELOCIDADE\nDA LINHA"},
			{Label: "WAIST\nPACKER"},
			{Label: "ISG\nELASTIC"},
			{Label: "WAIST\nELASTIC"},
			{Label: "ISG SIDE\nSEAL"},
			{Label: "ABSORVENT\nFIX"},
			{Label: "OUTER\nEDGE"},
			{Label: "INNER"},
			{Label: "BEAD"},
			{Label: "STANDING\nGATHER\nFRONT B. FIX"},
			{Label: "BACKFILM\nFIX"},
			{Label: "OSG SIDE\nSEAL"},
			{Label: "OSG\nELÁSTICO\n(LATERAL)"},
			{Label: "NW SEAL\nCONT\n(LATERAL)"},
			{Label: "NW SEAL\nINT CENT\n(RAL)"},
			{Label: "OUT SIDE\nBACK FILM\nFIX"},
			{Label: "TOPSHEET\nFIX"},
			{Label: "CORE WRAP", Subs: []string{"WRAP", "SIDE\nSEAL"}},
			{Label: "MAT FIX"},
		}
	}
	return nil
}
