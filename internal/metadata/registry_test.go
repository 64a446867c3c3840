package metadata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTag struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type testPost struct {
	ID        int64           `db:"id"`
	Title     string          `db:"title"`
	Price     decimal.Decimal `db:"price"`
	DeletedAt *time.Time      `db:"deleted_at"`
	Internal  string          `db:"-"`
	AuthorID  int64           `db:"author_id"`

	Author struct{} `rel:"author,target=testTag,local=author_id,foreign=id"`
	Tags   []struct{} `rel:"tags,target=testTag,local=id,foreign=id,through=posts_tags:post_id:tag_id"`
}

func TestInspect(t *testing.T) {
	def := Inspect(testPost{}, "post", "posts")

	assert.Equal(t, "post", def.Name)
	assert.Equal(t, "posts", def.Table)
	assert.Equal(t, []string{"id", "title", "price", "deleted_at", "author_id"}, def.ColumnNames())

	price, ok := def.Field("price")
	require.True(t, ok)
	assert.Equal(t, TypeMoney, price.Type)

	deletedAt, ok := def.Field("deleted_at")
	require.True(t, ok)
	assert.Equal(t, TypeDate, deletedAt.Type)
	assert.False(t, deletedAt.Required)

	require.Len(t, def.Relations, 2)
	assert.False(t, def.Relations[0].Many)
	assert.Equal(t, "author_id", def.Relations[0].LocalKey)
	assert.True(t, def.Relations[1].Many)
	require.NotNil(t, def.Relations[1].Through)
	assert.Equal(t, "posts_tags", def.Relations[1].Through.Table)
	assert.Equal(t, "tag_id", def.Relations[1].Through.TargetKey)
}

func TestInspect_DefaultName(t *testing.T) {
	def := Inspect(&testTag{}, "", "")
	assert.Equal(t, "test_tag", def.Name)
	assert.Equal(t, "test_tag", def.Table)
}

func TestRegistry_Link(t *testing.T) {
	reg := NewRegistry()
	reg.Register(
		Inspect(testPost{}, "post", "posts"),
		Inspect(testTag{}, "testTag", "tags"),
	)
	require.NoError(t, reg.Link())

	post, ok := reg.Get("post")
	require.True(t, ok)
	tags, ok := post.Relation("tags")
	require.True(t, ok)
	require.NotNil(t, tags.Entity())
	assert.Equal(t, "tags", tags.Entity().Table)
	assert.Len(t, reg.List(), 2)
}

func TestRegistry_LinkUnknownTarget(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Inspect(testPost{}, "post", "posts"))
	assert.Error(t, reg.Link())
}

func TestValues(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vals := Values(&testPost{ID: 1, Title: "t", Price: decimal.NewFromInt(5), DeletedAt: &now, Internal: "x"})

	assert.Equal(t, int64(1), vals["id"])
	assert.Equal(t, "t", vals["title"])
	assert.Equal(t, now, vals["deleted_at"])
	assert.NotContains(t, vals, "Internal")
	assert.NotContains(t, vals, "author")
	assert.Len(t, vals, 5)

	assert.Nil(t, Values(testPost{})["deleted_at"])
}
