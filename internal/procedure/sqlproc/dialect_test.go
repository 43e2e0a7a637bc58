package sqlproc

import "testing"

func TestBuildCallSQL_ProcedureMode(t *testing.T) {
	d := Dialect{Schema: "bank_a", Mode: ModeProcedure, PadArgsForOut: true}

	stmt, total := d.buildCallSQL("remittance_hold", 6)

	want := "CALL bank_a.sp_remittance_hold($1, $2, $3, $4, $5, $6, $7, $8)"
	if stmt != want {
		t.Fatalf("buildCallSQL = %q, want %q", stmt, want)
	}
	if total != 8 {
		t.Fatalf("total = %d, want 8 (6 in args + 2 OUT slots)", total)
	}
}

func TestBuildCallSQL_ProcedureModeNoPad(t *testing.T) {
	d := Dialect{Schema: "bank_a", Mode: ModeProcedure, PadArgsForOut: false}

	stmt, total := d.buildCallSQL("remittance_hold", 6)

	want := "CALL bank_a.sp_remittance_hold($1, $2, $3, $4, $5, $6)"
	if stmt != want {
		t.Fatalf("buildCallSQL = %q, want %q", stmt, want)
	}
	if total != 6 {
		t.Fatalf("total = %d, want 6 (OUT params need no placeholder on this dialect)", total)
	}
}

func TestBuildCallSQL_FunctionMode(t *testing.T) {
	d := Dialect{Schema: "bank_c", Mode: ModeFunction}

	stmt, total := d.buildCallSQL("confirm_debit_local", 1)

	want := "SELECT txn_id, status FROM bank_c.fn_confirm_debit_local($1)"
	if stmt != want {
		t.Fatalf("buildCallSQL = %q, want %q", stmt, want)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1 (function mode has no OUT slots)", total)
	}
}

func TestPadForOut_ProcedureModeWithPadAppendsTwoNils(t *testing.T) {
	d := Dialect{Schema: "bank_a", Mode: ModeProcedure, PadArgsForOut: true}

	got := d.padForOut([]any{"idem-1"})

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != "idem-1" || got[1] != nil || got[2] != nil {
		t.Fatalf("padForOut = %#v, want [\"idem-1\" nil nil]", got)
	}
}

func TestPadForOut_ProcedureModeWithoutPadLeavesArgsUntouched(t *testing.T) {
	d := Dialect{Schema: "bank_a", Mode: ModeProcedure, PadArgsForOut: false}

	in := []any{"idem-1"}
	got := d.padForOut(in)

	if len(got) != 1 || got[0] != "idem-1" {
		t.Fatalf("padForOut = %#v, want unchanged [\"idem-1\"]", got)
	}
}

func TestPadForOut_FunctionModeLeavesArgsUntouched(t *testing.T) {
	d := Dialect{Schema: "bank_c", Mode: ModeFunction}

	in := []any{"idem-1"}
	got := d.padForOut(in)

	if len(got) != 1 || got[0] != "idem-1" {
		t.Fatalf("padForOut = %#v, want unchanged [\"idem-1\"]", got)
	}
}

func TestObjectName(t *testing.T) {
	cases := []struct {
		d    Dialect
		proc string
		want string
	}{
		{Dialect{Schema: "bank_a", Mode: ModeProcedure}, "remittance_hold", "bank_a.sp_remittance_hold"},
		{Dialect{Schema: "bank_c", Mode: ModeFunction}, "remittance_hold", "bank_c.fn_remittance_hold"},
	}
	for _, c := range cases {
		if got := c.d.objectName(c.proc); got != c.want {
			t.Errorf("objectName(%q) = %q, want %q", c.proc, got, c.want)
		}
	}
}
