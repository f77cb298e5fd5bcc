/*
Copyright © 2020 the DupuitLEM authors.
This file is part of DupuitLEM.

DupuitLEM is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

DupuitLEM is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with DupuitLEM.  If not, see <http://www.gnu.org/licenses/>.
*/

package vadose

import (
	"math"
	"testing"

	"github.com/kr/pretty"
)

func TestProfile(t *testing.T) {
	// 4 bins of 0.5 m with 10% water content hold 0.05 m each.
	p, err := NewProfile(4, 2, 0.1, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(p.Depths(), []float64{0.5, 1, 1.5, 2}); len(diff) != 0 {
		t.Error(diff)
	}
	if math.Abs(p.BinCapacity()-0.05) > 1e-15 {
		t.Errorf("bin capacity: %g", p.BinCapacity())
	}

	p.RunEvent(0.12)
	want := []float64{0.07, 0.02, 0, 0}
	for i, r := range p.RechargeAtDepth() {
		if math.Abs(r-want[i]) > 1e-12 {
			t.Errorf("first event, bin %d: have %g, want %g", i, r, want[i])
		}
	}
	if diff := pretty.Diff(p.Saturated(), []bool{true, true, false, false}); len(diff) != 0 {
		t.Error(diff)
	}

	// Saturated bins pass water through.
	p.RunEvent(0.12)
	want = []float64{0.12, 0.12, 0.07, 0.02}
	for i, r := range p.RechargeAtDepth() {
		if math.Abs(r-want[i]) > 1e-12 {
			t.Errorf("second event, bin %d: have %g, want %g", i, r, want[i])
		}
	}

	// Drain 0.125 m, which empties the two shallowest full bins.
	p.RunInterevent(0.125 / 1e-8)
	if diff := pretty.Diff(p.Saturated(), []bool{false, false, true, true}); len(diff) != 0 {
		t.Error(diff)
	}

}

func TestNewProfileErrors(t *testing.T) {
	if _, err := NewProfile(0, 1, 0.1, 0); err == nil {
		t.Error("expected an error for zero bins")
	}
	if _, err := NewProfile(2, 1, 0, 0); err == nil {
		t.Error("expected an error for zero water content")
	}
}
