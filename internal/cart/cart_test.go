package cart

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/terrapos/terrapos/internal/pricing"
)

func TestAddMergesByProductAndBusinessType(t *testing.T) {
	c := New()
	ref := NewCatalogRef(1, "Clay Pot", "pots")

	require.NoError(t, c.Add(ref, 2, 100, 100, pricing.Retail))
	require.NoError(t, c.Add(ref, 3, 100, 100, pricing.Retail))
	require.Equal(t, 1, c.Len())
	require.Equal(t, 5, c.Items()[0].Quantity)

	// Same product under a different business type is a distinct line.
	require.NoError(t, c.Add(ref, 1, 80, 80, pricing.Wholesale))
	require.Equal(t, 2, c.Len())
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	c := New()
	require.Error(t, c.Add(NewCatalogRef(1, "Vase", "vases"), 0, 50, 50, pricing.Retail))
	require.Equal(t, 0, c.Len())
}

func TestEstimateCartCap(t *testing.T) {
	c := NewEstimate()
	for i := 0; i < EstimateMaxItems; i++ {
		ref := NewCatalogRef(int64(i+1), fmt.Sprintf("Item %d", i), "misc")
		require.NoError(t, c.Add(ref, 1, 10, 10, pricing.Retail))
	}
	require.Equal(t, EstimateMaxItems, c.Len())

	err := c.Add(NewCatalogRef(99, "One Too Many", "misc"), 1, 10, 10, pricing.Retail)
	require.ErrorIs(t, err, ErrMaxItems)
	require.Equal(t, EstimateMaxItems, c.Len())

	// Merging into an existing line is still allowed at the cap.
	require.NoError(t, c.Add(NewCatalogRef(1, "Item 0", "misc"), 2, 10, 10, pricing.Retail))
	require.Equal(t, 3, c.Items()[0].Quantity)
}

func TestRemove(t *testing.T) {
	c := New()
	ref := NewCatalogRef(7, "Planter", "planters")
	require.NoError(t, c.Add(ref, 1, 100, 100, pricing.Retail))
	c.Remove(ref.ID)
	require.Equal(t, 0, c.Len())

	// Removing an absent id is a no-op.
	c.Remove("missing")
}

func TestSetQuantityAndPrice(t *testing.T) {
	c := New()
	ref := NewCatalogRef(3, "Diya", "lamps")
	require.NoError(t, c.Add(ref, 2, 20, 20, pricing.Retail))

	c.SetQuantity(ref.ID, 5)
	require.Equal(t, 5, c.Items()[0].Quantity)
	c.SetQuantity(ref.ID, 0)
	require.Equal(t, 5, c.Items()[0].Quantity)

	c.SetPrice(ref.ID, 15)
	require.Equal(t, 15.0, c.Items()[0].CurrentPrice)
	require.Equal(t, 20.0, c.Items()[0].OriginalPrice)
	c.SetPrice(ref.ID, -1)
	require.Equal(t, 15.0, c.Items()[0].CurrentPrice)
}

func TestClear(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(NewCatalogRef(1, "Pot", "pots"), 1, 10, 10, pricing.Retail))
	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestTotalsFollowMutations(t *testing.T) {
	c := New()
	ref := NewCatalogRef(1, "Urn", "urns")
	require.NoError(t, c.Add(ref, 3, 100, 100, pricing.Retail))
	require.Equal(t, 300.0, c.Totals(pricing.Retail).FinalTotal)

	c.SetPrice(ref.ID, 90)
	totals := c.Totals(pricing.Retail)
	require.Equal(t, 30.0, totals.TotalDiscount)
	require.Equal(t, 270.0, totals.FinalTotal)
}

func TestAdHocRef(t *testing.T) {
	ref := NewAdHocRef("Custom Glaze Bowl", "custom")
	require.Equal(t, KindAdHoc, ref.Kind)
	require.Contains(t, ref.ID, "temp_")
	require.False(t, ref.TracksStock())
	require.True(t, NewCatalogRef(1, "Pot", "pots").TracksStock())
}
