package handler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/service"
)

func TestTemplateRenderer(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	item := &model.Item{Name: "Goggles", Description: "<b>clear</b>", CategoryName: "Snowboarding"}
	cases := map[string]*Page{
		"catalog":   {Categories: []model.Category{{Name: "Soccer"}}, Items: []model.Item{*item}},
		"category":  {Category: &model.Category{Name: "Snowboarding"}, Items: []model.Item{*item}},
		"item":      {Item: item, LoggedIn: true},
		"item_form": {Form: service.ItemInput{Name: "Goggles"}, FormAction: "/catalog/new", Error: "Name and description please!"},
		"delete":    {Item: item},
		"error":     {Status: 404, Message: "not found"},
		"login":     {Login: &service.LoginPage{State: "abc123", GoogleClientID: "gid", FacebookAppID: "fid"}},
	}

	for name, page := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, r.Render(&buf, name, page))
			assert.Contains(t, buf.String(), "<html")
		})
	}

	t.Run("escapes item text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, "item", &Page{Item: item}))
		assert.NotContains(t, buf.String(), "<b>clear</b>")
	})

	t.Run("unknown page", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, r.Render(&buf, "nope", &Page{}))
	})
}
