// Package catalog holds the course list shown by the storefront.
//
// The catalog is seeded from YAML (an embedded default or an operator file)
// and kept in memory. Administrative edits change the in-memory list only
// and are lost on restart.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"gopkg.in/yaml.v3"
)

// AllCategories selects every course in ByCategory.
const AllCategories = "all"

//go:embed courses.yaml
var defaultCourses []byte

type Catalog struct {
	mu      sync.RWMutex
	courses []models.Course
}

func New(courses []models.Course) *Catalog {
	return &Catalog{courses: cloneCourses(courses)}
}

// Load reads courses from path, or the built-in seed when path is empty.
// JSON files are accepted as well, being valid YAML.
func Load(path string) (*Catalog, error) {
	data := defaultCourses
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var courses []models.Course
	if err := yaml.Unmarshal(data, &courses); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[int]struct{}, len(courses))
	for _, c := range courses {
		if c.ID <= 0 {
			return nil, fmt.Errorf("course %q: id must be positive: %w", c.Title, common.ErrInvalidInput)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("course id %d: %w", c.ID, common.ErrDuplicateKey)
		}
		seen[c.ID] = struct{}{}
	}
	return New(courses), nil
}

func (c *Catalog) All() []models.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneCourses(c.courses)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.courses)
}

// ByCategory returns the courses of one category; "" or "all" returns
// every course.
func (c *Catalog) ByCategory(category string) []models.Course {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" || category == AllCategories {
		return c.All()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Course
	for _, course := range c.courses {
		if course.Category == category {
			out = append(out, cloneCourse(course))
		}
	}
	return out
}

// Categories returns the distinct categories in sorted order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := map[string]struct{}{}
	for _, course := range c.courses {
		set[course.Category] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Get(id int) (models.Course, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, course := range c.courses {
		if course.ID == id {
			return cloneCourse(course), nil
		}
	}
	return models.Course{}, fmt.Errorf("course %d: %w", id, common.ErrorNotFound)
}

func cloneCourse(c models.Course) models.Course {
	c.Features = slices.Clone(c.Features)
	return c
}

func cloneCourses(in []models.Course) []models.Course {
	out := make([]models.Course, len(in))
	for i, c := range in {
		out[i] = cloneCourse(c)
	}
	return out
}
