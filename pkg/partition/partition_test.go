package partition_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/api/resource"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
	"github.com/amd-aim/aimcore/pkg/catalog"
	"github.com/amd-aim/aimcore/pkg/devicecontroller"
	"github.com/amd-aim/aimcore/pkg/partition"
)

func TestPartition(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Partition Suite")
}

func newCatalog() *catalog.Catalog {
	return catalog.New(
		[]catalog.DeviceSpec{
			{
				Name:           "MI300X",
				TotalMemory:    resource.MustParse("192Gi"),
				ComputeModes:   []catalog.ComputeMode{catalog.ComputeSingle, catalog.ComputeCPX},
				MemoryModes:    []catalog.MemoryMode{catalog.MemoryUniform, catalog.MemoryQuadrant},
				SubDeviceCount: 8,
			},
		},
		[]catalog.ModelSizeEntry{
			catalog.NewModelSizeEntry("meta-llama/Llama-3.1-8B-Instruct", aimv1.PrecisionFP16, 20<<30),
			catalog.NewModelSizeEntry("mistralai/Mistral-7B-Instruct-v0.2", aimv1.PrecisionFP16, 14<<30),
			catalog.NewModelSizeEntry("meta-llama/Llama-3.3-70B-Instruct", aimv1.PrecisionFP16, 165<<30),
		},
		nil,
	)
}

var _ = Describe("Partitioner", func() {
	var (
		p    *partition.Partitioner
		cat  *catalog.Catalog
		ctrl *devicecontroller.Null
	)

	BeforeEach(func() {
		cat = newCatalog()
		ctrl = devicecontroller.NewNull()
		p = partition.New(ctrl, cat, nil, nil)
	})

	It("single+uniform yields one partition spanning the device", func() {
		Expect(p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryUniform)).To(Succeed())
		parts := p.AvailablePartitions(0)
		Expect(parts).To(HaveLen(1))
	})

	It("rejects quadrant memory mode combined with single compute mode", func() {
		err := p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryQuadrant)
		Expect(err).To(MatchError(partition.ErrModeIncompatible))
	})

	It("is idempotent on re-initialize with the same arguments", func() {
		Expect(p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryUniform)).To(Succeed())
		Expect(p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryUniform)).To(Succeed())
	})

	It("rejects re-initialize with different arguments while already initialized", func() {
		Expect(p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryUniform)).To(Succeed())
		err := p.Initialize("MI300X", catalog.ComputeCPX, catalog.MemoryQuadrant)
		Expect(err).To(MatchError(partition.ErrAlreadyInitialized))
	})

	Context("scenario 1: fit, single", func() {
		It("allocates ~10% utilization for an 8B fp16 model", func() {
			Expect(p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryUniform)).To(Succeed())
			Expect(p.Allocate("meta-llama/Llama-3.1-8B-Instruct", 0, aimv1.PrecisionFP16)).To(Succeed())
			util := p.Utilization()
			Expect(util[0]).To(BeNumerically("~", 0.10, 0.01))
		})
	})

	Context("scenario 2: fit, cpx", func() {
		It("places two models on distinct partitions of 24GB each", func() {
			Expect(p.Initialize("MI300X", catalog.ComputeCPX, catalog.MemoryQuadrant)).To(Succeed())
			parts := p.AvailablePartitions(0)
			Expect(parts).To(HaveLen(8))
			part0, _ := p.PartitionByID(0)
			Expect(part0.Capacity).To(BeNumerically("~", 24<<30, 1<<20))

			Expect(p.Allocate("meta-llama/Llama-3.1-8B-Instruct", 0, aimv1.PrecisionFP16)).To(Succeed())
			Expect(p.Allocate("mistralai/Mistral-7B-Instruct-v0.2", 1, aimv1.PrecisionFP16)).To(Succeed())

			p0, _ := p.PartitionByID(0)
			p1, _ := p.PartitionByID(1)
			Expect(p0.Allocated).To(Equal(int64(20 << 30)))
			Expect(p1.Allocated).To(Equal(int64(14 << 30)))
		})
	})

	Context("scenario 3: no fit", func() {
		It("returns InsufficientMemory when a 70B model exceeds every quadrant partition", func() {
			Expect(p.Initialize("MI300X", catalog.ComputeCPX, catalog.MemoryQuadrant)).To(Succeed())
			err := p.Allocate("meta-llama/Llama-3.3-70B-Instruct", 0, aimv1.PrecisionFP16)
			Expect(err).To(MatchError(partition.ErrInsufficientMemory))
		})
	})

	It("round-trips utilization bit-for-bit across schedule/unschedule", func() {
		Expect(p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryUniform)).To(Succeed())
		before := p.Utilization()
		Expect(p.Allocate("meta-llama/Llama-3.1-8B-Instruct", 0, aimv1.PrecisionFP16)).To(Succeed())
		Expect(p.Deallocate("meta-llama/Llama-3.1-8B-Instruct", 0)).To(Succeed())
		after := p.Utilization()
		Expect(after).To(Equal(before))
	})

	It("returns NotResident when deallocating an absent model", func() {
		Expect(p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryUniform)).To(Succeed())
		err := p.Deallocate("nonexistent", 0)
		Expect(err).To(MatchError(partition.ErrNotResident))
	})

	It("orders AvailablePartitions by descending free bytes, ties by ascending id", func() {
		Expect(p.Initialize("MI300X", catalog.ComputeCPX, catalog.MemoryQuadrant)).To(Succeed())
		Expect(p.Allocate("mistralai/Mistral-7B-Instruct-v0.2", 2, aimv1.PrecisionFP16)).To(Succeed())
		parts := p.AvailablePartitions(0)
		Expect(parts[len(parts)-1]).To(Equal(2)) // least free bytes last
		Expect(parts[0]).To(Equal(0))            // tie among equals broken by ascending id
	})

	It("passes validate() after normal use", func() {
		Expect(p.Initialize("MI300X", catalog.ComputeSingle, catalog.MemoryUniform)).To(Succeed())
		Expect(p.Allocate("meta-llama/Llama-3.1-8B-Instruct", 0, aimv1.PrecisionFP16)).To(Succeed())
		Expect(p.Validate()).To(BeEmpty())
	})
})
