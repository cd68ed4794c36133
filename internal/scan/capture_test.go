package scan

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CaptureStore", func() {
	var (
		storage *mockStorage
		store   *CaptureStore
	)

	BeforeEach(func() {
		storage = newMockStorage()
		store = NewCaptureStoreWithDeps(storage,
			&mockIDGenerator{prefix: "cap"},
			&mockTimeSource{now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)},
		)
	})

	Describe("Add", func() {
		It("appends a pending image with coordinates", func() {
			coords := &Coordinates{Latitude: -16.5, Longitude: -68.15}
			img, err := store.Add(CaptureItem{Data: []byte("photo"), ContentType: "image/jpeg"}, coords)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.ID).To(Equal("cap-1"))
			Expect(img.Filename).To(Equal("cap-1.jpg"))
			Expect(img.Coordinates).To(Equal(coords))
			Expect(store.List()).To(HaveLen(1))
		})

		It("accepts a capture without coordinates", func() {
			img, err := store.Add(CaptureItem{Data: []byte("photo"), ContentType: "image/png"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Coordinates).To(BeNil())
		})

		It("rejects empty image data", func() {
			_, err := store.Add(CaptureItem{ContentType: "image/png"}, nil)
			Expect(err).To(HaveOccurred())
			Expect(store.List()).To(BeEmpty())
		})

		It("writes the bytes to storage", func() {
			_, err := store.Add(CaptureItem{Data: []byte("photo"), ContentType: "image/png"}, nil)
			Expect(err).NotTo(HaveOccurred())
			data, err := store.ImageData("cap-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("photo")))
		})
	})

	Describe("AddBatch", func() {
		It("appends the images in order, without coordinates", func() {
			items := []CaptureItem{
				{Data: []byte("a"), ContentType: "image/png"},
				{Data: []byte("b"), ContentType: "image/png"},
				{Data: []byte("c"), ContentType: "image/png"},
			}
			added, err := store.AddBatch(items)
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(HaveLen(3))
			for i, img := range store.List() {
				Expect(img.ID).To(Equal(fmt.Sprintf("cap-%d", i+1)))
				Expect(img.Coordinates).To(BeNil())
			}
		})
	})

	Describe("Remove", func() {
		BeforeEach(func() {
			_, err := store.Add(CaptureItem{Data: []byte("photo"), ContentType: "image/png"}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("removes the entry and its file", func() {
			Expect(store.Remove("cap-1")).To(Succeed())
			Expect(store.List()).To(BeEmpty())
			Expect(storage.files).To(BeEmpty())
		})

		It("returns ErrCaptureNotFound for an unknown id", func() {
			Expect(store.Remove("nope")).To(MatchError(ErrCaptureNotFound))
			Expect(store.List()).To(HaveLen(1))
		})
	})

	Describe("Subscribe", func() {
		It("fires listeners synchronously on every mutation", func() {
			var fired int
			store.Subscribe(func() { fired++ })

			_, err := store.Add(CaptureItem{Data: []byte("photo"), ContentType: "image/png"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(fired).To(Equal(1))

			Expect(store.Remove("cap-1")).To(Succeed())
			Expect(fired).To(Equal(2))
		})
	})

	Describe("List", func() {
		It("returns a snapshot, not the live slice", func() {
			_, err := store.Add(CaptureItem{Data: []byte("photo"), ContentType: "image/png"}, nil)
			Expect(err).NotTo(HaveOccurred())
			snapshot := store.List()
			Expect(store.Remove("cap-1")).To(Succeed())
			Expect(snapshot).To(HaveLen(1))
		})
	})
})
