package transfer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/models"
)

func TestActionsByStatusAndRole(t *testing.T) {
	src, dst := int64(1), int64(2)
	central := models.Actor{UserID: 1, Role: rbac.RoleWastebankCentral, UnitID: &dst}
	sourceStaff := models.Actor{UserID: 2, Role: rbac.RoleWastebankUnit, UnitID: &src}
	destStaff := models.Actor{UserID: 3, Role: rbac.RoleWastebankUnit, UnitID: &dst}
	bank := Row{SourceUnitID: src, DestinationUnitID: dst, DestinationKind: orgunit.KindWastebankCentral}
	industry := Row{SourceUnitID: dst, DestinationUnitID: 9, DestinationKind: orgunit.KindIndustry}

	cases := []struct {
		name   string
		actor  models.Actor
		row    Row
		status string
		want   []string
	}{
		{"central decides pending", central, bank, StatusPending, []string{ActionApprove, ActionReject, ActionCancel}},
		{"source cancels pending", sourceStaff, bank, StatusPending, []string{ActionCancel}},
		{"destination waits", destStaff, bank, StatusPending, []string{}},
		{"source ships approved", sourceStaff, bank, StatusApproved, []string{ActionShip, ActionCancel}},
		{"destination receives", destStaff, bank, StatusInTransit, []string{ActionReceive}},
		{"source cannot receive", sourceStaff, bank, StatusInTransit, []string{}},
		{"central receives for industry", central, industry, StatusInTransit, []string{ActionReceive}},
		{"final state", central, bank, StatusReceived, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.row.Status = tc.status
			if diff := cmp.Diff(tc.want, Actions(tc.actor, tc.row)); diff != "" {
				t.Fatalf("actions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
