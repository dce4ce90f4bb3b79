package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/database/inventory"
	"github.com/avolkov/biblio/internal/entities"
)

// NewBookAnnouncer pushes new-book events to genre subscribers.
// Implemented by the task queue enqueuer; nil disables announcements.
type NewBookAnnouncer interface {
	NewBookAdded(bookID uint)
}

type BooksController struct {
	inventory *inventory.Repository
	announcer NewBookAnnouncer
}

func NewBooksController(inv *inventory.Repository, announcer NewBookAnnouncer) *BooksController {
	return &BooksController{
		inventory: inv,
		announcer: announcer,
	}
}

type createBookRequest struct {
	Title           string `json:"title" binding:"required"`
	Author          string `json:"author" binding:"required"`
	Publisher       string `json:"publisher"`
	Genre           string `json:"genre" binding:"required"`
	ISBN            string `json:"isbn" binding:"required"`
	PublicationDate string `json:"publication_date"`
	Description     string `json:"description"`
	CoverURL        string `json:"cover_url"`
	TotalCopies     int    `json:"total_copies"`
}

func (bc *BooksController) Create(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	genre := entities.Genre(req.Genre)
	if !genre.Valid() {
		respondBadRequest(c, "invalid genre: "+req.Genre)
		return
	}

	copies := req.TotalCopies
	if copies <= 0 {
		copies = 1
	}

	book := &entities.Book{
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		Genre:       genre,
		ISBN:        req.ISBN,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		TotalCopies: copies,
	}

	if req.PublicationDate != "" {
		pubDate, err := time.Parse("2006-01-02", req.PublicationDate)
		if err != nil {
			respondBadRequest(c, "invalid publication_date, expected YYYY-MM-DD")
			return
		}
		book.PublicationDate = pubDate
	}

	if err := bc.inventory.CreateBook(book); err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	if bc.announcer != nil {
		bc.announcer.NewBookAdded(book.ID)
	}

	respondCreated(c, book)
}

func (bc *BooksController) List(c *gin.Context) {
	title := c.Query("title")
	author := c.Query("author")
	publisher := c.Query("publisher")
	genre := c.Query("genre")

	var (
		books []entities.Book
		err   error
	)
	if title != "" || author != "" || publisher != "" || genre != "" {
		books, err = bc.inventory.SearchBooks(title, author, publisher, entities.Genre(genre))
	} else {
		books, err = bc.inventory.GetAllBooks()
	}
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.inventory.GetBookByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	c.IndentedJSON(http.StatusOK, book)
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Publisher   *string `json:"publisher"`
	Genre       *string `json:"genre"`
	Description *string `json:"description"`
	CoverURL    *string `json:"cover_url"`
	TotalCopies *int    `json:"total_copies"`
}

func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	book, err := bc.inventory.GetBookByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Publisher != nil {
		book.Publisher = *req.Publisher
	}
	if req.Genre != nil {
		genre := entities.Genre(*req.Genre)
		if !genre.Valid() {
			respondBadRequest(c, "invalid genre: "+*req.Genre)
			return
		}
		book.Genre = genre
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.CoverURL != nil {
		book.CoverURL = *req.CoverURL
	}
	if req.TotalCopies != nil {
		if *req.TotalCopies < 0 {
			respondBadRequest(c, "total_copies must not be negative")
			return
		}
		book.TotalCopies = *req.TotalCopies
	}

	if err := bc.inventory.UpdateBook(book); err != nil {
		respondInternalError(c, err, "update book")
		return
	}

	c.IndentedJSON(http.StatusOK, book)
}

func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.inventory.DeleteBook(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		if errors.Is(err, inventory.ErrBookHasActiveLoans) {
			respondConflict(c, "book has active loans")
			return
		}
		respondInternalError(c, err, "delete book")
		return
	}

	respondSuccess(c, "book deleted")
}
