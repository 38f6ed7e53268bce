package merge

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"AgileKeeper/internal/cli/model"
)

// Items выполняет трёхстороннее слияние записи. a побеждает при
// расхождении обеих сторон. Если одна из сторон удалила запись, результат
// маркер удаления. Результат не привязан к хранилищу.
func Items(base, a, b model.ItemAndContent) (model.ItemAndContent, error) {
	for _, side := range []model.ItemAndContent{a, b} {
		if side.Item.IsTombstone() {
			tomb := side.Item.Clone()
			tomb.SetContent(model.ItemContent{})
			return model.ItemAndContent{Item: tomb, Content: model.ItemContent{}}, nil
		}
	}

	content, err := Contents(base.Content, a.Content, b.Content)
	if err != nil {
		return model.ItemAndContent{}, err
	}

	bi, ai, bb := base.Item, a.Item, b.Item
	item := ai.Clone()
	item.Title = MergeField(bi.Title, ai.Title, bb.Title)
	item.TypeName = MergeField(bi.TypeName, ai.TypeName, bb.TypeName)
	item.Trashed = MergeField(bi.Trashed, ai.Trashed, bb.Trashed)
	item.FolderUUID = MergeField(bi.FolderUUID, ai.FolderUUID, bb.FolderUUID)
	item.CreatedAt = MergeFieldFunc(bi.CreatedAt, ai.CreatedAt, bb.CreatedAt, time.Time.Equal)
	item.FaveIndex = cloneInt(MergeFieldFunc(bi.FaveIndex, ai.FaveIndex, bb.FaveIndex, equalIntPtr))
	open := MergeFieldFunc(bi.OpenContents, ai.OpenContents, bb.OpenContents, equalOpenContents)
	item.OpenContents = model.ItemOpenContents{Tags: slices.Clone(open.Tags), Scope: open.Scope}
	if bb.UpdatedAt.After(item.UpdatedAt) {
		item.UpdatedAt = bb.UpdatedAt
	}
	item.SetContent(content)
	if len(content.URLs) == 0 {
		item.Location = MergeField(bi.Location, ai.Location, bb.Location)
	}
	return model.ItemAndContent{Item: item, Content: content}, nil
}

// Contents сливает зашифрованную часть записи: секции по имени, поля секций
// по имени, ссылки по метке, поля формы по имени.
func Contents(base, a, b model.ItemContent) (model.ItemContent, error) {
	var out model.ItemContent
	var err error
	if out.Sections, err = MergeArraysFunc(base.Sections, a.Sections, b.Sections,
		func(s model.ItemSection) string { return s.Name }, mergeSection); err != nil {
		return model.ItemContent{}, err
	}
	if out.URLs, err = MergeArrays(base.URLs, a.URLs, b.URLs,
		func(u model.ItemURL) string { return u.Label }, MergeField[model.ItemURL]); err != nil {
		return model.ItemContent{}, err
	}
	if out.FormFields, err = MergeArrays(base.FormFields, a.FormFields, b.FormFields,
		func(f model.WebFormField) string { return f.Name }, MergeField[model.WebFormField]); err != nil {
		return model.ItemContent{}, err
	}
	out.Notes = MergeField(base.Notes, a.Notes, b.Notes)
	out.HTMLAction = MergeField(base.HTMLAction, a.HTMLAction, b.HTMLAction)
	out.HTMLMethod = MergeField(base.HTMLMethod, a.HTMLMethod, b.HTMLMethod)
	out.HTMLID = MergeField(base.HTMLID, a.HTMLID, b.HTMLID)
	return out.Clone(), nil
}

func mergeSection(base, a, b model.ItemSection) (model.ItemSection, error) {
	fields, err := MergeArrays(base.Fields, a.Fields, b.Fields,
		func(f model.ItemField) string { return f.Name }, mergeItemField)
	if err != nil {
		return model.ItemSection{}, fmt.Errorf("section %q fields: %w", a.Name, err)
	}
	return model.ItemSection{
		Name:   a.Name,
		Title:  MergeField(base.Title, a.Title, b.Title),
		Fields: fields,
	}, nil
}

func mergeItemField(base, a, b model.ItemField) model.ItemField {
	return MergeFieldFunc(base, a, b, func(x, y model.ItemField) bool { return reflect.DeepEqual(x, y) })
}

func equalIntPtr(x, y *int) bool {
	if x == nil || y == nil {
		return x == y
	}
	return *x == *y
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalOpenContents(x, y model.ItemOpenContents) bool {
	return x.Scope == y.Scope && slices.Equal(x.Tags, y.Tags)
}
