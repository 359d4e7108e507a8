package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDMap_MarshalNumericOrder(t *testing.T) {
	counts := IDMap[uint64]{10: 3, 2: 1, 0: 0, 1: 7}

	data, err := json.Marshal(counts)
	require.NoError(t, err)
	assert.Equal(t, `{"0":0,"1":7,"2":1,"10":3}`, string(data))
}

func TestIDMap_MarshalEmpty(t *testing.T) {
	var counts IDMap[uint64]

	data, err := json.Marshal(counts)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestIDMap_UnmarshalRejectsNonNumericKey(t *testing.T) {
	var counts IDMap[uint64]

	err := json.Unmarshal([]byte(`{"x":1}`), &counts)
	assert.Error(t, err)
}

func TestCoverageRecord_RoundTrip(t *testing.T) {
	loc := SourceLocation{
		Start: Position{Line: 1, Column: 0},
		End:   Position{Line: 1, Column: 12},
	}
	record := CoverageRecord{
		Path:         "src/A.lua",
		StatementMap: IDMap[SourceLocation]{0: loc, 1: loc},
		FnMap: IDMap[FnEntry]{
			0: {Name: "(anonymous_0)", Decl: loc, Loc: loc, Line: 1},
		},
		BranchMap: IDMap[BranchEntry]{
			0: {Type: BranchIf, Line: 1, Loc: loc, Locations: []SourceLocation{loc, loc}},
		},
		S: IDMap[uint64]{0: 1, 1: 0},
		F: IDMap[uint64]{0: 2},
		B: IDMap[[]uint64]{0: {1, 0}},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded CoverageRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, record, decoded)

	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestPosition_OffsetNotSerialized(t *testing.T) {
	data, err := json.Marshal(Position{Line: 3, Column: 4, Offset: 99})
	require.NoError(t, err)
	assert.Equal(t, `{"line":3,"column":4}`, string(data))
}
