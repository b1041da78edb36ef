package view

import (
	"context"
	"strings"
	"sync"

	"github.com/kaasu-app/kaasu/internal/api"
	"github.com/kaasu-app/kaasu/internal/models"
)

// CategoriesController owns the category management page.
type CategoriesController struct {
	client *api.Client

	mu    sync.Mutex
	gen   uint64
	items []models.Category
	err   error

	initOnce sync.Once
}

// NewCategoriesController creates a controller bound to the given client.
func NewCategoriesController(client *api.Client) *CategoriesController {
	return &CategoriesController{client: client}
}

// Load bootstraps the store once, then performs the initial reload.
func (c *CategoriesController) Load(ctx context.Context) error {
	c.initOnce.Do(func() {
		_ = c.client.InitStore(ctx)
	})
	return c.Reload(ctx)
}

// Reload refetches the category list. A reload superseded while in flight is
// discarded.
func (c *CategoriesController) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	items, err := c.client.ListCategories(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	if err != nil {
		c.err = err
		return err
	}
	c.items = items
	c.err = nil
	return nil
}

// Items returns the current snapshot, alphabetically ordered by the server.
func (c *CategoriesController) Items() []models.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

// Err returns the failure of the most recent operation, or nil.
func (c *CategoriesController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Create adds a category and reloads. Blank names are rejected before any
// request is made.
func (c *CategoriesController) Create(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}

	if _, err := c.client.CreateCategory(ctx, name); err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}
	return c.Reload(ctx)
}

// Delete removes a category and reloads. Categories still referenced by
// expenses are rejected by the server; the error surfaces through Err.
func (c *CategoriesController) Delete(ctx context.Context, id int) error {
	if err := c.client.DeleteCategory(ctx, id); err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}
	return c.Reload(ctx)
}

// TagsController owns the tag management page. Same shape as
// CategoriesController, over the tag endpoints.
type TagsController struct {
	client *api.Client

	mu    sync.Mutex
	gen   uint64
	items []models.Tag
	err   error

	initOnce sync.Once
}

// NewTagsController creates a controller bound to the given client.
func NewTagsController(client *api.Client) *TagsController {
	return &TagsController{client: client}
}

// Load bootstraps the store once, then performs the initial reload.
func (c *TagsController) Load(ctx context.Context) error {
	c.initOnce.Do(func() {
		_ = c.client.InitStore(ctx)
	})
	return c.Reload(ctx)
}

// Reload refetches the tag list. A reload superseded while in flight is
// discarded.
func (c *TagsController) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	items, err := c.client.ListTags(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	if err != nil {
		c.err = err
		return err
	}
	c.items = items
	c.err = nil
	return nil
}

// Items returns the current snapshot.
func (c *TagsController) Items() []models.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

// Err returns the failure of the most recent operation, or nil.
func (c *TagsController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Create adds a tag and reloads. Blank names are rejected before any request
// is made.
func (c *TagsController) Create(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}

	if _, err := c.client.CreateTag(ctx, name); err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}
	return c.Reload(ctx)
}

// Delete removes a tag and reloads. Tag rows on expenses are detached by the
// server.
func (c *TagsController) Delete(ctx context.Context, id int) error {
	if err := c.client.DeleteTag(ctx, id); err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}
	return c.Reload(ctx)
}
