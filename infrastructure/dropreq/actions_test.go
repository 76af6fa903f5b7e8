package dropreq

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wasteboard/infrastructure/rbac"
	"wasteboard/models"
)

func TestActionsFollowStatusAndRole(t *testing.T) {
	unitID, collectorID := int64(3), int64(9)
	customer := models.Actor{UserID: 1, Role: rbac.RoleCustomer}
	staff := models.Actor{UserID: 2, Role: rbac.RoleWastebankUnit, UnitID: &unitID}
	collector := models.Actor{UserID: collectorID, Role: rbac.RoleCollectorUnit}
	dispatcher := models.Actor{UserID: 4, Role: rbac.RoleCollectorCentral}
	central := models.Actor{UserID: 5, Role: rbac.RoleWastebankCentral}

	pickup := Row{ID: 1, CustomerID: 1, UnitID: unitID, DeliveryType: DeliveryPickup, Status: StatusPending}
	require.Equal(t, []string{ActionCancel}, Actions(customer, pickup))
	require.Equal(t, []string{ActionAssign, ActionCancel}, Actions(staff, pickup))
	require.Equal(t, []string{ActionAssign, ActionCancel}, Actions(dispatcher, pickup))
	require.Empty(t, Actions(central, pickup))
	require.Empty(t, Actions(collector, pickup))

	assigned := pickup
	assigned.Status = StatusAssigned
	assigned.AssignedCollectorID = &collectorID
	require.Equal(t, []string{ActionStart}, Actions(collector, assigned))

	collecting := assigned
	collecting.Status = StatusCollecting
	require.Equal(t, []string{ActionComplete}, Actions(collector, collecting))
	require.Equal(t, []string{ActionReceive}, Actions(staff, collecting))

	dropoff := Row{ID: 2, CustomerID: 1, UnitID: unitID, DeliveryType: DeliveryDropoff, Status: StatusPending}
	require.Equal(t, []string{ActionReceive, ActionCancel}, Actions(staff, dropoff))

	done := dropoff
	done.Status = StatusCompleted
	require.True(t, Can(customer, done, ActionRate))
	rating := int64(4)
	done.Rating = &rating
	require.False(t, Can(customer, done, ActionRate))
	require.Empty(t, Actions(models.Actor{UserID: 77, Role: rbac.RoleCustomer}, done))
}
