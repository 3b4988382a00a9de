package roster

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIsEmpty(t *testing.T) {
	assert.True(t, Record{}.IsEmpty())
	assert.False(t, Record{ID: 1}.IsEmpty())
	assert.False(t, Record{Name: "Darth Sidious"}.IsEmpty())
	assert.False(t, Record{Master: &Link{}}.IsEmpty())
}

func TestRecordUnmarshal(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		payload := `{
			"id": 3616,
			"name": "Darth Sidious",
			"homeworld": {"id": 7, "name": "Naboo"},
			"master": {"url": "http://localhost:3000/dark-jedis/2350", "id": 2350},
			"apprentice": {"url": "http://localhost:3000/dark-jedis/1489", "id": 1489}
		}`

		var r Record
		require.NoError(t, json.Unmarshal([]byte(payload), &r))

		assert.Equal(t, 3616, r.ID)
		assert.Equal(t, "Darth Sidious", r.Name)
		require.NotNil(t, r.Homeworld)
		assert.Equal(t, "Naboo", r.Homeworld.Name)
		assert.True(t, r.HasMaster())
		assert.True(t, r.HasApprentice())
		assert.Equal(t, 2350, RelationMaster.Link(r).ID)
		assert.Equal(t, 1489, RelationApprentice.Link(r).ID)
	})

	t.Run("chain endpoint sends null link", func(t *testing.T) {
		payload := `{"id": 1, "name": "Darth Bane", "master": {"url": null, "id": null}}`

		var r Record
		require.NoError(t, json.Unmarshal([]byte(payload), &r))

		assert.NotNil(t, r.Master)
		assert.False(t, r.HasMaster())
		assert.Nil(t, RelationMaster.Link(r))
		assert.Nil(t, RelationApprentice.Link(r))
	})
}

func TestRelationLink(t *testing.T) {
	r := Record{ID: 5, Master: &Link{ID: 7}, Apprentice: &Link{ID: 9}}

	assert.Equal(t, 7, RelationMaster.Link(r).ID)
	assert.Equal(t, 9, RelationApprentice.Link(r).ID)
	assert.Nil(t, Relation("padawan").Link(r))
}

func TestRelationValidate(t *testing.T) {
	assert.NoError(t, RelationMaster.Validate())
	assert.NoError(t, RelationApprentice.Validate())

	err := Relation("padawan").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid relation")
}

func TestRecordOn(t *testing.T) {
	r := Record{ID: 1, Name: "Darth Maul", Homeworld: &Homeworld{ID: 13, Name: "Dathomir"}}

	assert.True(t, r.On(Location{ID: 13, Name: "Dathomir"}))
	assert.False(t, r.On(Location{ID: 7, Name: "Naboo"}))
	assert.False(t, r.On(Location{}))
	assert.False(t, Record{}.On(Location{ID: 13}))
}

func TestRecordValidate(t *testing.T) {
	valid := Record{ID: 3616, Name: "Darth Sidious"}
	assert.NoError(t, valid.Validate())

	noID := Record{Name: "Nameless"}
	err := noID.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")

	noName := Record{ID: 2}
	err = noName.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLocationIsZero(t *testing.T) {
	assert.True(t, Location{}.IsZero())
	assert.False(t, Location{ID: 1, Name: "Tatooine"}.IsZero())
}
