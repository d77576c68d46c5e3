package integration

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/rdwwatch/rdw-vehicle-watch/test-integration/vehicle-watch/helpers"
)

const plateID = "G727FN"

// getJSON requests path and returns the status code and parsed body
func getJSON(server *helpers.ServerTestHelper, path string) (int, gjson.Result) {
	resp, err := server.Get(path)
	Expect(err).NotTo(HaveOccurred())
	return readBody(resp)
}

func readBody(resp *http.Response) (int, gjson.Result) {
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, gjson.ParseBytes(body)
}

var _ = Describe("Vehicle watch", func() {
	var (
		tempDir   string
		statusDir string
		registry  *helpers.MockRegistryServer
		stolen    *helpers.MockStolenRegister
		server    *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		tempDir = createTempDir("vehicle-watch-")
		statusDir = filepath.Join(tempDir, "status")
		registry = helpers.NewMockRegistryServer().WithVehicle(plateID, helpers.ToyotaYaris)
		stolen = helpers.NewMockStolenRegister()
	})

	AfterEach(func() {
		if server != nil {
			Expect(server.StopServer()).To(Succeed())
			server = nil
		}
		registry.Close()
		stolen.Close()
		cleanupTempDir(tempDir)
	})

	start := func(opts helpers.ConfigOptions) {
		opts.Plate = "G-727-FN"
		opts.StatusDir = statusDir
		if opts.RegistryEndpoint == "" {
			opts.RegistryEndpoint = registry.Endpoint()
		}
		configPath := helpers.WriteConfigYAML(tempDir, opts)

		server = helpers.NewServerTestHelper(ctx, configPath)
		Expect(server.StartServer()).To(Succeed())
		server.WaitForServerReady(10 * time.Second)
	}

	waitReady := func() {
		Eventually(func() int {
			code, _ := getJSON(server, "/readiness")
			return code
		}, 20*time.Second, 100*time.Millisecond).Should(Equal(http.StatusOK))
	}

	Context("with both sources answering", func() {
		BeforeEach(func() {
			start(helpers.ConfigOptions{StolenEndpoint: stolen.Endpoint()})
			waitReady()
		})

		It("serves the merged record", func() {
			code, doc := getJSON(server, "/vehicle")
			Expect(code).To(Equal(http.StatusOK))
			Expect(doc.Get("plate").String()).To(Equal(plateID))
			Expect(doc.Get("record.merk").String()).To(Equal("TOYOTA"))
			Expect(doc.Get("record.is_stolen").Type).To(Equal(gjson.False))
			Expect(doc.Get("record.api_gekentekende_voertuigen_assen").Exists()).To(BeFalse())
			Expect(doc.Get("stale").Bool()).To(BeFalse())
		})

		It("serves readouts with availability", func() {
			code, doc := getJSON(server, "/vehicle/readouts/merk")
			Expect(code).To(Equal(http.StatusOK))
			Expect(doc.Get("value").String()).To(Equal("TOYOTA"))
			Expect(doc.Get("available").Bool()).To(BeTrue())

			code, doc = getJSON(server, "/vehicle/readouts")
			Expect(code).To(Equal(http.StatusOK))
			Expect(doc.Get("device.manufacturer").String()).To(Equal("RDW (Dutch Road Authority)"))
			Expect(doc.Get("stolen.state").String()).To(Equal("off"))
		})

		It("picks up a stolen report on refresh", func() {
			stolen.SetStolen(plateID, true)

			resp, err := server.Refresh()
			Expect(err).NotTo(HaveOccurred())
			code, doc := readBody(resp)
			Expect(code).To(Equal(http.StatusOK))
			Expect(doc.Get("success").Bool()).To(BeTrue())
			Expect(doc.Get("changed").Bool()).To(BeTrue())

			_, flag := getJSON(server, "/vehicle/stolen")
			Expect(flag.Get("state").String()).To(Equal("on"))
			Expect(flag.Get("value").Bool()).To(BeTrue())
		})

		It("does not report a change when nothing changed", func() {
			resp, err := server.Refresh()
			Expect(err).NotTo(HaveOccurred())
			_, doc := readBody(resp)
			Expect(doc.Get("success").Bool()).To(BeTrue())
			Expect(doc.Get("changed").Bool()).To(BeFalse())
		})

		It("persists the snapshot to the status directory", func() {
			Eventually(func() error {
				_, err := os.Stat(filepath.Join(statusDir, plateID, "status.json"))
				return err
			}, 5*time.Second, 100*time.Millisecond).Should(Succeed())
		})

		It("reports diagnostics", func() {
			code, doc := getJSON(server, "/diagnostics")
			Expect(code).To(Equal(http.StatusOK))
			Expect(doc.Get("phase").String()).To(Equal("Complete"))
			Expect(doc.Get("consecutiveErrors").Int()).To(BeZero())
			Expect(doc.Get("updateIntervalSeconds").Float()).To(Equal(3600.0))
		})
	})

	Context("when the registry is down and the stolen register is not configured", func() {
		BeforeEach(func() {
			registry.FailWith(http.StatusBadGateway)
			start(helpers.ConfigOptions{})
		})

		It("stays not ready and recovers on retry", func() {
			Eventually(func() string {
				_, doc := getJSON(server, "/readiness")
				return doc.Get("phase").String()
			}, 10*time.Second, 100*time.Millisecond).Should(Equal("Failed"))

			code, _ := getJSON(server, "/vehicle")
			Expect(code).To(Equal(http.StatusNotFound))

			_, diag := getJSON(server, "/diagnostics")
			Expect(diag.Get("consecutiveErrors").Int()).To(BeNumerically(">=", 1))

			registry.FailWith(0)
			waitReady()

			_, doc := getJSON(server, "/vehicle")
			Expect(doc.Get("record.merk").String()).To(Equal("TOYOTA"))
			Expect(doc.Get("record.is_stolen").Type).To(Equal(gjson.Null))
		})
	})

	Context("when only the stolen register answers", func() {
		BeforeEach(func() {
			registry.FailWith(http.StatusInternalServerError)
			start(helpers.ConfigOptions{StolenEndpoint: stolen.Endpoint()})
			waitReady()
		})

		It("keeps a record with the stolen status and no registry facts", func() {
			_, doc := getJSON(server, "/vehicle")
			Expect(doc.Get("record.is_stolen").Type).To(Equal(gjson.False))
			Expect(doc.Get("record.merk").Exists()).To(BeFalse())

			code, _ := getJSON(server, "/vehicle/readouts/merk")
			Expect(code).To(Equal(http.StatusNotFound))

			_, flag := getJSON(server, "/vehicle/stolen")
			Expect(flag.Get("available").Bool()).To(BeTrue())
		})
	})

	Context("with a restricted field selection", func() {
		BeforeEach(func() {
			start(helpers.ConfigOptions{Fields: []string{"merk", "handelsbenaming"}})
			waitReady()
		})

		It("exposes only the selected readouts", func() {
			_, doc := getJSON(server, "/vehicle/readouts")
			Expect(doc.Get("readouts.#").Int()).To(Equal(int64(2)))
			Expect(doc.Get("readouts.0.key").String()).To(Equal("merk"))

			code, _ := getJSON(server, "/vehicle/readouts/catalogusprijs")
			Expect(code).To(Equal(http.StatusNotFound))
		})
	})
})
