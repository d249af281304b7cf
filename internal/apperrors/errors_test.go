package apperrors

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	Describe("basic error creation", func() {
		It("should create error with correct properties", func() {
			err := New(InvalidArgument, "test message")

			Expect(err.Kind).To(Equal(InvalidArgument))
			Expect(err.Message).To(Equal("test message"))
			Expect(err.StatusCode()).To(Equal(http.StatusBadRequest))
			Expect(err.Details).To(BeEmpty())
			Expect(err.Cause).To(BeNil())
		})

		It("should implement error interface correctly", func() {
			err := New(InvalidArgument, "test message")
			Expect(err.Error()).To(Equal("invalid_argument: test message"))
		})

		It("should include details in error string when present", func() {
			err := New(InvalidArgument, "test message").WithDetails("extra info")
			Expect(err.Error()).To(Equal("invalid_argument: test message (extra info)"))
		})
	})

	Describe("wrapping", func() {
		It("should wrap an underlying error", func() {
			original := errors.New("pq: duplicate key")
			wrapped := Wrap(original, Conflict, "insert failed")

			Expect(wrapped.Kind).To(Equal(Conflict))
			Expect(errors.Unwrap(wrapped)).NotTo(BeNil())
		})
	})

	Describe("status code mapping", func() {
		It("maps every kind to its documented HTTP status", func() {
			cases := map[Kind]int{
				Unauthorized:       http.StatusUnauthorized,
				NotFound:           http.StatusNotFound,
				Conflict:           http.StatusConflict,
				InvalidArgument:    http.StatusBadRequest,
				PreconditionFailed: http.StatusPreconditionFailed,
				Internal:           http.StatusInternalServerError,
			}
			for kind, status := range cases {
				Expect(New(kind, "x").StatusCode()).To(Equal(status))
			}
		})
	})

	Describe("KindOf", func() {
		It("extracts the kind from a plain AppError", func() {
			Expect(KindOf(NewNotFound("skill"))).To(Equal(NotFound))
		})

		It("defaults to Internal for non-AppError errors", func() {
			Expect(KindOf(errors.New("boom"))).To(Equal(Internal))
		})
	})
})
