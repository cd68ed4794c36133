package classify

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// pngBytes renders a tiny valid PNG so NormalizePNG passes it through.
func pngBytes() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("API", func() {
	var (
		server *ghttp.Server
		api    *API
		resp   *Response
		err    error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		api, err = NewAPI(server.URL() + "/predict")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		resp, err = api.Classify(context.Background(), pngBytes(), "image/png")
	})

	When("the prediction service answers", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/predict"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"imagen":       "data:image/jpeg;base64,QUJDRA==",
					"enfermedades": []string{"Planta: Mildiu"},
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("decodes the typed response", func() {
			Expect(resp.Imagen).To(Equal("data:image/jpeg;base64,QUJDRA=="))
			Expect(resp.Enfermedades).To(Equal([]string{"Planta: Mildiu"}))
		})
	})

	When("the prediction service fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "boom"))
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status 500"))
		})
	})

	When("the response body is not JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "not json"))
		})

		It("returns a decode error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("decoding response"))
		})
	})
})

var _ = Describe("NewAPI", func() {
	It("rejects an empty url", func() {
		_, err := NewAPI("")
		Expect(err).To(HaveOccurred())
	})
})
