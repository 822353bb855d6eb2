package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/models"
)

// CourseInput holds the fields an operator supplies for a new course.
type CourseInput struct {
	Title      string
	Instructor string
	Category   string
	Price      float64
}

// CoursePatch changes selected fields; nil fields are left alone.
type CoursePatch struct {
	Title      *string
	Instructor *string
	Category   *string
	Price      *float64
}

func validateCourse(title, instructor, category string, price float64) error {
	switch {
	case title == "":
		return fmt.Errorf("title is required: %w", common.ErrInvalidInput)
	case instructor == "":
		return fmt.Errorf("instructor is required: %w", common.ErrInvalidInput)
	case category == "":
		return fmt.Errorf("category is required: %w", common.ErrInvalidInput)
	case price < 0 || math.IsNaN(price) || math.IsInf(price, 0):
		return fmt.Errorf("price must be a non-negative number: %w", common.ErrInvalidInput)
	}
	return nil
}

// Add appends a course with the next free id. Presentation fields not in
// the input get the storefront defaults; the list price is 20% above price.
func (c *Catalog) Add(in CourseInput) (models.Course, error) {
	title := strings.TrimSpace(in.Title)
	instructor := strings.TrimSpace(in.Instructor)
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if err := validateCourse(title, instructor, category, in.Price); err != nil {
		return models.Course{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nextID := 1
	for _, course := range c.courses {
		if course.ID >= nextID {
			nextID = course.ID + 1
		}
	}

	course := models.Course{
		ID:            nextID,
		Title:         title,
		Instructor:    instructor,
		Description:   "Descrição do novo curso",
		Price:         in.Price,
		OriginalPrice: models.FromCents(models.Cents(in.Price * 1.2)),
		Duration:      "30 horas",
		Category:      category,
		Icon:          "fas fa-book",
		Badge:         "Novo",
		Features:      []string{"Conteúdo prático", "Certificado de conclusão"},
	}
	c.courses = append(c.courses, course)
	return cloneCourse(course), nil
}

func (c *Catalog) Update(id int, patch CoursePatch) (models.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.courses {
		if c.courses[i].ID != id {
			continue
		}

		updated := cloneCourse(c.courses[i])
		if patch.Title != nil {
			updated.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Instructor != nil {
			updated.Instructor = strings.TrimSpace(*patch.Instructor)
		}
		if patch.Category != nil {
			updated.Category = strings.ToLower(strings.TrimSpace(*patch.Category))
		}
		if patch.Price != nil {
			updated.Price = *patch.Price
		}
		if err := validateCourse(updated.Title, updated.Instructor, updated.Category, updated.Price); err != nil {
			return models.Course{}, err
		}

		c.courses[i] = updated
		return cloneCourse(updated), nil
	}
	return models.Course{}, fmt.Errorf("course %d: %w", id, common.ErrorNotFound)
}

func (c *Catalog) Delete(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.courses {
		if c.courses[i].ID == id {
			c.courses = append(c.courses[:i], c.courses[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("course %d: %w", id, common.ErrorNotFound)
}
