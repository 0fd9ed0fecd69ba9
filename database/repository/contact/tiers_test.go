package contactRepo

import (
	"testing"

	"careline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTiers_GroupsAndOrders(t *testing.T) {
	contacts := []models.Contact{
		{ID: "c2", Name: "Son", Tier: models.TierPrimary, Priority: 2},
		{ID: "c3", Name: "Neighbor", Tier: models.TierSecondary, Priority: 1},
		{ID: "c1", Name: "Daughter", Tier: models.TierPrimary, Priority: 1},
	}

	tiers := BuildTiers(contacts)
	require.Len(t, tiers, 3)

	assert.Equal(t, models.TierPrimary, tiers[0].Name)
	require.Len(t, tiers[0].Contacts, 2)
	assert.Equal(t, "Daughter", tiers[0].Contacts[0].Name)
	assert.Equal(t, "Son", tiers[0].Contacts[1].Name)

	assert.Equal(t, models.TierSecondary, tiers[1].Name)
	require.Len(t, tiers[1].Contacts, 1)

	assert.Equal(t, models.TierEmergencyService, tiers[2].Name)
}

func TestBuildTiers_SkipsEmptyTiers(t *testing.T) {
	contacts := []models.Contact{
		{ID: "c1", Name: "Neighbor", Tier: models.TierSecondary, Priority: 1},
	}

	tiers := BuildTiers(contacts)
	require.Len(t, tiers, 2)
	assert.Equal(t, models.TierSecondary, tiers[0].Name)
	assert.Equal(t, models.TierEmergencyService, tiers[1].Name)
}

func TestBuildTiers_EmergencyFallbackWhenUnconfigured(t *testing.T) {
	tiers := BuildTiers(nil)
	require.Len(t, tiers, 1)
	assert.Equal(t, models.TierEmergencyService, tiers[0].Name)
	require.Len(t, tiers[0].Contacts, 1)
	assert.Equal(t, "fallback-hospital", tiers[0].Contacts[0].ID)
	require.Len(t, tiers[0].Contacts[0].Channels, 1)
	assert.Equal(t, models.ChannelEmergency, tiers[0].Contacts[0].Channels[0].Channel)
}

func TestBuildTiers_ConfiguredHospitalReplacesFallback(t *testing.T) {
	contacts := []models.Contact{
		{ID: "h1", Name: "St. Mary's Hospital", Tier: models.TierEmergencyService,
			Channels: []models.ContactChannel{{Channel: models.ChannelEmergency, Target: "https://stmarys.example.com/ems"}}},
	}

	tiers := BuildTiers(contacts)
	require.Len(t, tiers, 1)
	require.Len(t, tiers[0].Contacts, 1)
	assert.Equal(t, "h1", tiers[0].Contacts[0].ID)
}
