package core

// The two group descriptors. Field order is the paper-form column order and
// must not be reordered: storage columns, validation and the exported sheets
// are all derived from it.

var grupo1Spec = GroupSpec{
	Group:     Grupo1,
	Table:     "coleta_grupo1",
	SheetName: "ABS e Tape",
	Lines:     []string{"L90", "L91", "L92", "L93", "L94", "L80", "L81", "L82", "L83"},
	Fields: []FieldSpec{
		{Name: "velocidadeLinha", Column: "velocidade_linha", Header: "VELOCIDADE\nDA LINHA", Width: 12},
		{Name: "coreAttach", Column: "core_attach", Header: "CORE ATTACH\n(ADESIVO\nCENTRAL)", Width: 14},
		{Name: "coreWrap", Column: "core_wrap", Header: "CORE WRAP\n(ADESIVO\nLATERAL)", Width: 14},
		{Name: "surge", Column: "surge", Header: "SURGE", Width: 10},
		{Name: "cuffEnd", Column: "cuff_end", Header: "CUFF END", Width: 10},
		{Name: "bead", Column: "bead", Header: "BEAD", Width: 10},
		{Name: "legElastic", Column: "leg_elastic", Header: "LEG ELASTIC\n(ELÁSTICO DA\nPERNA)", Width: 14},
		{Name: "cuffElastic", Column: "cuff_elastic", Header: "CUFF ELASTIC\n(ELÁSTICO DA\nCUFF)", Width: 14},
		{Name: "temporary", Column: "temporary", Header: "TEMPORARY", Width: 12},
		{Name: "topsheet", Column: "topsheet", Header: "TOPSHEET\n(NON\nWOVEN)", Width: 12},
		{Name: "backsheet", Column: "backsheet", Header: "BACKSHEET\n(POLY)", Width: 12},
		{Name: "frontal", Column: "frontal", Header: "FRONTAL", Width: 10},
		{Name: "earAttach", Column: "ear_attach", Header: "EAR\nATTACH", Width: 10},
		{Name: "pulpFix", Column: "pulp_fix", Header: "PULP FIX", Width: 10},
		{Name: "central", Column: "central", Header: "CENTRAL", Width: 10},
		{Name: "release", Column: "release", Header: "RELEASE", Width: 10},
		{Name: "tapeOnBag", Column: "tape_on_bag", Header: "TAPE ON\nBAG", Width: 12},
		{Name: "filme1x1", Column: "filme_1x1", Header: "FILME 1X1", Width: 12},
	},
}

var grupo2Spec = GroupSpec{
	Group:     Grupo2,
	Table:     "coleta_grupo2",
	SheetName: "Pants",
	Lines:     []string{"L84", "L85"},
	Fields: []FieldSpec{
		{Name: "velocidadeLinha", Column: "velocidade_linha", Header: "VELOCIDADE\nDA LINHA", Width: 12},
		{Name: "waistPacker", Column: "waist_packer", Header: "WAIST\nPACKER", Width: 12},
		{Name: "isgElastic", Column: "isg_elastic", Header: "ISG\nELASTIC", Width: 10},
		{Name: "waistElastic", Column: "waist_elastic", Header: "WAIST\nELASTIC", Width: 12},
		{Name: "isgSideSeal", Column: "isg_side_seal", Header: "ISG SIDE\nSEAL", Width: 14},
		{Name: "absorventFix", Column: "absorvent_fix", Header: "ABSORVENT\nFIX", Width: 12},
		{Name: "outerEdge", Column: "outer_edge", Header: "OUTER\nEDGE", Width: 10},
		{Name: "inner", Column: "inner", Header: "INNER", Width: 10},
		{Name: "bead", Column: "bead", Header: "BEAD", Width: 10},
		{Name: "standingGather", Column: "standing_gather", Header: "STANDING\nGATHER\nFRONT B. FIX", Width: 14},
		{Name: "backflimFix", Column: "backflim_fix", Header: "BACKFILM\nFIX", Width: 12},
		{Name: "osgSideSeal", Column: "osg_side_seal", Header: "OSG SIDE\nSEAL", Width: 12},
		{Name: "osgElastico", Column: "osg_elastico", Header: "OSG\nELÁSTICO\n(LATERAL)", Width: 12},
		{Name: "nwSealContLateral", Column: "nw_seal_cont_lateral", Header: "NW SEAL\nCONT\n(LATERAL)", Width: 12},
		{Name: "nwSealIntCentRal", Column: "nw_seal_int_cent_ral", Header: "NW SEAL\nINT CENT\n(RAL)", Width: 14},
		{Name: "outSideBackFlm", Column: "out_side_back_flm", Header: "OUT SIDE\nBACK FILM\nFIX", Width: 14},
		{Name: "topsheetFix", Column: "topsheet_fix", Header: "TOPSHEET\nFIX", Width: 12},
		{Name: "coreWrap", Column: "core_wrap", Header: "CORE\nWRAP", Width: 10},
		{Name: "coreWrapSeal", Column: "core_wrap_seal", Header: "CORE\nWRAP SIDE\nSEAL", Width: 14},
		{Name: "matFix", Column: "mat_fix", Header: "MAT FIX", Width: 10},
	},
}

// Spec returns the descriptor for a group.
func Spec(g Group) *GroupSpec {
	switch g {
	case Grupo1:
		return &grupo1Spec
	case Grupo2:
		return &grupo2Spec
	}
	return nil
}

// Specs returns both group descriptors in group order.
func Specs() []*GroupSpec {
	return []*GroupSpec{&grupo1Spec, &grupo2Spec}
}
