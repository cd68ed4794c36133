package scan

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newRecord := func(id string, fecha time.Time) *ScanRecord {
		return &ScanRecord{
			ID:          id,
			Tipo:        "Mildiu",
			Descripcion: "Hongo foliar",
			Tratamiento: "Fungicida cuprico",
			Fecha:       fecha,
			ImagenURL:   "https://img.example/" + id + ".png",
		}
	}

	Describe("SaveScan", func() {
		var (
			uid string
			rec *ScanRecord
			err error
		)

		BeforeEach(func() {
			uid = "user-1"
			rec = newRecord("rec-1", time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
		})

		JustBeforeEach(func() {
			err = db.SaveScan(uid, rec)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("assigns CreatedAt", func() {
				Expect(rec.CreatedAt).NotTo(BeZero())
			})

			It("stores the record under the user", func() {
				records, listErr := db.ListScans("user-1")
				Expect(listErr).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1))
				Expect(records[0].ID).To(Equal("rec-1"))
				Expect(records[0].Tipo).To(Equal("Mildiu"))
				Expect(records[0].ImagenURL).To(Equal("https://img.example/rec-1.png"))
			})
		})

		When("no user is authenticated", func() {
			BeforeEach(func() {
				uid = ""
			})

			It("fails with ErrUnauthenticated", func() {
				Expect(err).To(MatchError(ErrUnauthenticated))
			})
		})

		When("the record has no hosted image url", func() {
			BeforeEach(func() {
				rec.ImagenURL = ""
			})

			It("refuses to save", func() {
				Expect(err).To(HaveOccurred())
			})
		})

		When("the record has no disease type", func() {
			BeforeEach(func() {
				rec.Tipo = ""
			})

			It("refuses to save", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("ListScans", func() {
		When("no user is authenticated", func() {
			It("fails with ErrUnauthenticated", func() {
				_, err := db.ListScans("")
				Expect(err).To(MatchError(ErrUnauthenticated))
			})
		})

		When("the user has no records", func() {
			It("returns an empty list", func() {
				records, err := db.ListScans("user-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(BeEmpty())
			})
		})

		When("the user has records", func() {
			BeforeEach(func() {
				base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
				Expect(db.SaveScan("user-1", newRecord("old", base))).To(Succeed())
				Expect(db.SaveScan("user-1", newRecord("newest", base.Add(2*time.Hour)))).To(Succeed())
				Expect(db.SaveScan("user-1", newRecord("middle", base.Add(time.Hour)))).To(Succeed())
				Expect(db.SaveScan("user-2", newRecord("other", base.Add(3*time.Hour)))).To(Succeed())
			})

			It("returns them sorted by Fecha descending", func() {
				records, err := db.ListScans("user-1")
				Expect(err).NotTo(HaveOccurred())
				ids := []string{records[0].ID, records[1].ID, records[2].ID}
				Expect(ids).To(Equal([]string{"newest", "middle", "old"}))
			})

			It("never leaks another user's records", func() {
				records, err := db.ListScans("user-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(3))
			})

			It("is idempotent", func() {
				first, err := db.ListScans("user-1")
				Expect(err).NotTo(HaveOccurred())
				second, err := db.ListScans("user-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(second).To(Equal(first))
			})
		})
	})

	Describe("disease reference", func() {
		BeforeEach(func() {
			Expect(db.PutDisease(&Disease{
				Nombre:      "Mildiu",
				Descripcion: "Hongo foliar",
				Tratamiento: "Fungicida cuprico",
			})).To(Succeed())
		})

		It("looks up an entry by exact name", func() {
			d, err := db.GetDisease("Mildiu")
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Descripcion).To(Equal("Hongo foliar"))
		})

		It("is case sensitive", func() {
			_, err := db.GetDisease("mildiu")
			Expect(err).To(MatchError(ErrDiseaseNotFound))
		})

		It("returns ErrDiseaseNotFound for an unknown name", func() {
			_, err := db.GetDisease("Oidio")
			Expect(err).To(MatchError(ErrDiseaseNotFound))
		})

		It("upserts on repeated put", func() {
			Expect(db.PutDisease(&Disease{Nombre: "Mildiu", Descripcion: "Actualizada"})).To(Succeed())
			d, err := db.GetDisease("Mildiu")
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Descripcion).To(Equal("Actualizada"))

			diseases, err := db.ListDiseases()
			Expect(err).NotTo(HaveOccurred())
			Expect(diseases).To(HaveLen(1))
		})

		It("rejects an entry without nombre", func() {
			Expect(db.PutDisease(&Disease{Descripcion: "x"})).NotTo(Succeed())
		})
	})

	Describe("SeedDiseases", func() {
		var seedPath string

		BeforeEach(func() {
			seedPath = filepath.Join(tmpDir, "enfermedades.yaml")
			seed := `enfermedades:
  - nombre: Mildiu
    descripcion: Hongo foliar
    tratamiento: Fungicida cuprico
  - nombre: Roya
    descripcion: Pustulas anaranjadas
    tratamiento: Retirar hojas afectadas
`
			Expect(os.WriteFile(seedPath, []byte(seed), 0644)).To(Succeed())
		})

		It("loads every entry into the reference collection", func() {
			n, err := SeedDiseases(db, seedPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			d, err := db.GetDisease("Roya")
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Tratamiento).To(Equal("Retirar hojas afectadas"))
		})

		It("fails on a missing file", func() {
			_, err := SeedDiseases(db, filepath.Join(tmpDir, "nope.yaml"))
			Expect(err).To(HaveOccurred())
		})

		It("fails on an entry without nombre", func() {
			Expect(os.WriteFile(seedPath, []byte("enfermedades:\n  - descripcion: x\n"), 0644)).To(Succeed())
			_, err := SeedDiseases(db, seedPath)
			Expect(err).To(HaveOccurred())
		})
	})
})
