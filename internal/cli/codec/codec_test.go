package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgileKeeper/internal/cli/model"
)

func TestBiMap_ForwardBackward(t *testing.T) {
	code, err := FieldKinds.Forward(model.FieldPassword)
	require.NoError(t, err)
	assert.Equal(t, "concealed", code)

	kind, err := FieldKinds.Backward("cctype")
	require.NoError(t, err)
	assert.Equal(t, model.FieldCreditCardType, kind)
	assert.Equal(t, 11, FieldKinds.Len())

	_, err = FieldKinds.Backward("bogus")
	assert.ErrorIs(t, err, ErrFormat)

	ft, err := FormFieldTypes.Backward("C")
	require.NoError(t, err)
	assert.Equal(t, model.FormFieldCheckbox, ft)
	_, err = FormFieldTypes.Forward(model.FormFieldType(99))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestNewBiMap_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBiMap("dup", Pair[int, string]{1, "a"}, Pair[int, string]{2, "a"})
	})
}

func TestItemRecord_RoundTripOverview(t *testing.T) {
	fave := 4
	item := &model.Item{
		UUID:         "0123456789ABCDEF0123456789ABCDEF",
		Title:        "Facebook",
		TypeName:     model.LoginType,
		CreatedAt:    time.Unix(1400000000, 0).UTC(),
		UpdatedAt:    time.Unix(1400000500, 0).UTC(),
		Trashed:      true,
		FaveIndex:    &fave,
		FolderUUID:   "FOLDER",
		Location:     "facebook.com",
		OpenContents: model.ItemOpenContents{Tags: []string{"social"}, Scope: "Never"},
	}
	data, err := EncodeItem(item, []byte("Salted__12345678cipher"))
	require.NoError(t, err)

	rec, err := DecodeItem(data)
	require.NoError(t, err)
	assert.Equal(t, model.SecurityLevel5, rec.SecurityLevel)
	enc, err := rec.EncryptedData()
	require.NoError(t, err)
	assert.Equal(t, "Salted__12345678cipher", string(enc))

	got := FromItemRecord(rec)
	assert.Equal(t, item.UUID, got.UUID)
	assert.Equal(t, item.Title, got.Title)
	assert.True(t, item.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, item.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, item.Trashed, got.Trashed)
	assert.Equal(t, item.FolderUUID, got.FolderUUID)
	require.NotNil(t, got.FaveIndex)
	assert.Equal(t, 4, *got.FaveIndex)
	assert.Equal(t, item.OpenContents, got.OpenContents)
	assert.Equal(t, item.Location, got.Location)
}

func TestItemRecord_SubSecondTimestampsTruncated(t *testing.T) {
	item := &model.Item{UUID: "A", TypeName: model.LoginType, UpdatedAt: time.Unix(1400000000, 900_000_000)}
	rec := ToItemRecord(item, nil)
	assert.Equal(t, int64(1400000000), rec.UpdatedAt)
	assert.Empty(t, rec.Encrypted)
}

func TestDecodeItem_OptionalFieldsDefault(t *testing.T) {
	rec, err := DecodeItem([]byte(`{"uuid":"A","typeName":"webforms.WebForm","updatedAt":5,"encrypted":"U2FsdGVkX18="}`))
	require.NoError(t, err)
	item := FromItemRecord(rec)
	assert.Empty(t, item.Location)
	assert.Nil(t, item.FaveIndex)
	assert.True(t, item.CreatedAt.IsZero())
	assert.Nil(t, rec.SecureContents)
}

func TestDecodeItem_Strict(t *testing.T) {
	_, err := DecodeItem([]byte(`{"typeName":"x","updatedAt":1}`))
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "uuid")

	_, err = DecodeItem([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrFormat)

	rec, err := DecodeItem([]byte(`{"uuid":"A","typeName":"x","updatedAt":1,"encrypted":"%%%"}`))
	require.NoError(t, err)
	_, err = rec.EncryptedData()
	assert.ErrorIs(t, err, ErrFormat)
}

func TestContent_RoundTrip(t *testing.T) {
	c := model.ItemContent{
		Sections: []model.ItemSection{{
			Name:  "details",
			Title: "Details",
			Fields: []model.ItemField{
				{Kind: model.FieldText, Name: "pin", Title: "PIN", Value: "1234"},
				{Kind: model.FieldDate, Name: "expires", Value: float64(1400000000)},
				{Kind: model.FieldAddress, Name: "addr", Value: map[string]any{"city": "Riga"}},
			},
		}},
		URLs:  []model.ItemURL{{Label: "website", URL: "facebook.com"}},
		Notes: "notes",
		FormFields: []model.WebFormField{
			{ID: "1", Name: "email", Type: model.FormFieldEmail, Designation: model.DesignationUsername, Value: "john.doe@gmail.com"},
			{ID: "2", Name: "pass", Type: model.FormFieldPassword, Designation: model.DesignationPassword, Value: "Wwk-ZWc-T9MO"},
		},
		HTMLAction: "/login",
		HTMLMethod: "POST",
		HTMLID:     "form1",
	}
	data, err := EncodeContent(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "URLs")
	assert.Contains(t, raw, "notesPlain")

	got, err := DecodeContent(data)
	require.NoError(t, err)
	assert.True(t, c.Equal(got), "got %+v", got)
}

func TestDecodeContent_UnknownCodes(t *testing.T) {
	_, err := DecodeContent([]byte(`{"sections":[{"name":"s","fields":[{"k":"hologram","n":"x"}]}]}`))
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "hologram")

	_, err = DecodeContent([]byte(`{"fields":[{"name":"x","type":"Z","value":""}]}`))
	assert.ErrorIs(t, err, ErrFormat)

	c, err := DecodeContent([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, c.Equal(model.ItemContent{}))
}

func TestKeyList_RoundTrip(t *testing.T) {
	keys := []model.EncryptionKey{{
		Identifier: "KEYID",
		Data:       []byte("Salted__saltsaltdata"),
		Validation: []byte("Salted__saltsaltvalid"),
		Iterations: 1000,
		Level:      model.SecurityLevel5,
	}}
	data, err := EncodeKeyList(keys)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "KEYID", raw["SL5"])

	got, err := DecodeKeyList(data)
	require.NoError(t, err)
	assert.Equal(t, keys, got)
}

func TestDecodeKeyList_Strict(t *testing.T) {
	_, err := DecodeKeyList([]byte(`{"SL5":"X"}`))
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "list")

	_, err = DecodeKeyList([]byte(`{"list":[{"data":"AA==","identifier":"X","level":"SL5","validation":"AA=="}]}`))
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "iterations")

	got, err := DecodeKeyList([]byte(`{"list":[]}`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestContents_EncodeDecode(t *testing.T) {
	entries := []ContentsEntry{
		{UUID: "B", TypeName: model.TombstoneType, Title: "Unnamed", Trashed: true},
		{UUID: "A", TypeName: model.LoginType, Title: "Facebook", Location: "facebook.com", UpdatedAt: 1400000000, FolderUUID: "F"},
	}
	data, err := EncodeContents(entries)
	require.NoError(t, err)
	assert.JSONEq(t, `[["A","webforms.WebForm","Facebook","facebook.com",1400000000,"F",0,"N"],["B","system.Tombstone","Unnamed","",0,"",0,"Y"]]`, string(data))

	got, err := DecodeContents(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entries[1], got[0])
	assert.True(t, got[1].IsTombstone())
}

func TestDecodeContents_Strict(t *testing.T) {
	_, err := DecodeContents([]byte(`[["A","x","t"]]`))
	assert.ErrorIs(t, err, ErrFormat)
	_, err = DecodeContents([]byte(`[["A","x","t","",1,"",0,"maybe"]]`))
	assert.ErrorIs(t, err, ErrFormat)
	_, err = DecodeContents([]byte(`[[1,"x","t","",1,"",0,"N"]]`))
	assert.ErrorIs(t, err, ErrFormat)
	got, err := DecodeContents([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)

	empty, err := EncodeContents(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestUpsertContents(t *testing.T) {
	entries := []ContentsEntry{{UUID: "A", Title: "old"}, {UUID: "B", Title: "b"}}
	got := UpsertContents(entries, map[string]ContentsEntry{
		"A": {UUID: "A", Title: "new"},
		"C": {UUID: "C", Title: "c"},
	})
	assert.Equal(t, []ContentsEntry{{UUID: "A", Title: "new"}, {UUID: "B", Title: "b"}, {UUID: "C", Title: "c"}}, got)
}

func TestItemStates_TombstoneWins(t *testing.T) {
	index := []ContentsEntry{
		{UUID: "A", TypeName: model.LoginType},
		{UUID: "B", TypeName: model.TombstoneType},
	}
	files := map[string]string{"A": "rev-a", "B": "rev-b", "C": "rev-c"}
	got := ItemStates(index, files)
	assert.Equal(t, []model.ItemState{
		{UUID: "A", Revision: "rev-a"},
		{UUID: "B", Deleted: true},
		{UUID: "C", Revision: "rev-c"},
	}, got)
}
