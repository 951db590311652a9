package chi

import (
	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

var validate = validator.New()

// recommendRequest accepts both the English field and the original Italian one.
type recommendRequest struct {
	Title  *string `json:"title"`
	Titolo *string `json:"titolo"`
}

type recommendInput struct {
	Title *string `validate:"required"`
}

func (r recommendRequest) normalize() recommendInput {
	return recommendInput{Title: firstSet(r.Title, r.Titolo)}
}

type candidateRequest struct {
	Title    *string `json:"title"`
	Titolo   *string `json:"titolo"`
	Synopsis string  `json:"synopsis"`
}

type deepDiveRequest struct {
	Title           *string            `json:"title"`
	Titolo          *string            `json:"titolo"`
	Recommendations []candidateRequest `json:"recommendations"`
}

type candidateInput struct {
	Title    *string `validate:"required"`
	Synopsis string
}

type deepDiveInput struct {
	Title           *string          `validate:"required"`
	Recommendations []candidateInput `validate:"required,dive"`
}

func (r deepDiveRequest) normalize() deepDiveInput {
	in := deepDiveInput{Title: firstSet(r.Title, r.Titolo)}
	if r.Recommendations != nil {
		in.Recommendations = make([]candidateInput, len(r.Recommendations))
		for i, c := range r.Recommendations {
			in.Recommendations[i] = candidateInput{Title: firstSet(c.Title, c.Titolo), Synopsis: c.Synopsis}
		}
	}
	return in
}

func (in deepDiveInput) candidates() []book.Candidate {
	out := make([]book.Candidate, len(in.Recommendations))
	for i, c := range in.Recommendations {
		out[i] = book.Candidate{Title: *c.Title, Synopsis: c.Synopsis}
	}
	return out
}

type bookResponse struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Synopsis      string `json:"synopsis"`
	ShelfLocation string `json:"shelf_location"`
	Year          *int   `json:"year"`
}

func bookToResponse(b *book.Book) bookResponse {
	resp := bookResponse{
		ID:            b.ID(),
		Title:         b.Title(),
		Author:        b.Author(),
		Synopsis:      b.Synopsis(),
		ShelfLocation: b.ShelfLocation(),
	}
	if y, ok := b.Year(); ok {
		resp.Year = &y
	}
	return resp
}

type disambiguationResponse struct {
	Message string   `json:"message"`
	Options []string `json:"options"`
}

type deepDiveResponse struct {
	Analysis map[string]string `json:"analysis"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func firstSet(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
