package models

import (
	"testing"

	"catalogsync-backend/dtos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportItemRawRowRoundTrip(t *testing.T) {
	item := ImportItem{}
	item.SetRawRow(map[string]string{"sku": "A-1", "price": "5.49"})

	row := item.RawRow()
	assert.Equal(t, "A-1", row["sku"])
	assert.Equal(t, "5.49", row["price"])

	empty := ImportItem{}
	assert.Empty(t, empty.RawRow())

	corrupt := ImportItem{RawJSON: "{broken"}
	assert.Empty(t, corrupt.RawRow())
}

func TestImportItemMappedRoundTrip(t *testing.T) {
	item := ImportItem{}
	assert.Nil(t, item.Mapped())

	title := "Green Tea"
	price := int64(549)
	item.SetMapped(&dtos.MappedData{
		Product: dtos.ProductFields{Title: &title, Price: &price},
	})

	mapped := item.Mapped()
	require.NotNil(t, mapped)
	assert.Equal(t, "Green Tea", *mapped.Product.Title)
	assert.Equal(t, int64(549), *mapped.Product.Price)

	item.SetMapped(nil)
	assert.Nil(t, item.Mapped())
}

func TestImportItemValidationErrors(t *testing.T) {
	item := ImportItem{}
	assert.Nil(t, item.ValidationErrors())

	item.SetValidationErrors([]string{"bad price"})
	assert.Equal(t, []string{"bad price"}, item.ValidationErrors())

	// Clearing the errors empties the stored payload so SQL filters on the
	// column keep working.
	item.SetValidationErrors(nil)
	assert.Empty(t, item.ValidationJSON)
}

func TestImportItemChanges(t *testing.T) {
	item := ImportItem{}
	assert.Nil(t, item.Changes())

	item.SetChanges([]dtos.FieldChange{{Field: "price", OldValue: "500", NewValue: "549"}})
	changes := item.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "price", changes[0].Field)

	item.SetChanges(nil)
	assert.Empty(t, item.ChangesJSON)
}
