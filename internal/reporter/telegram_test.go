package reporter

import "testing"

func TestFormatAlert(t *testing.T) {
	got := FormatAlert("send to <jobs@acme.example> failed")
	want := "⚠️ <b>HR Skip</b>:\nsend to &lt;jobs@acme.example&gt; failed"
	if got != want {
		t.Errorf("FormatAlert() = %q, want %q", got, want)
	}
}
