package cloth_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/clothsim/internal/cloth"
)

var _ = Describe("Cloth", func() {
	var params cloth.Params

	BeforeEach(func() {
		params = cloth.DefaultParams()
	})

	Describe("fixed nodes", func() {
		It("never move, whatever forces are injected", func() {
			c, err := cloth.New(params)
			Expect(err).NotTo(HaveOccurred())

			fixed := c.FixedIndices()
			Expect(fixed).To(HaveLen(4))
			before := make(map[int]mgl64.Vec3)
			for _, i := range fixed {
				before[i], _ = c.PositionAt(i)
			}

			for tick := 0; tick < 300; tick++ {
				for i := 0; i < c.Nodes(); i++ {
					Expect(c.SetExternalForceAt(i, mgl64.Vec3{0.01, -0.02, 0.005})).To(Succeed())
				}
				Expect(c.Advance(1.0 / 120)).To(Succeed())

				for _, i := range fixed {
					pos, _ := c.PositionAt(i)
					vel, _ := c.VelocityAt(i)
					Expect(pos).To(Equal(before[i]))
					Expect(vel).To(Equal(mgl64.Vec3{}))
				}
			}
		})
	})

	Describe("ground plane", func() {
		DescribeTable("clamps free nodes to exactly the ground height",
			func(height float64) {
				params.Grid = cloth.Grid{Cols: 4, Rows: 4, SpacingX: 0.5, SpacingZ: 0.5, Offset: mgl64.Vec3{0, height + 1e-6, 0}}
				params.Pinning = cloth.PinNone
				params.Gravity = mgl64.Vec3{0, -9.81, 0}
				params.Ground = cloth.Ground{Enabled: true, Height: height}
				c, err := cloth.New(params)
				Expect(err).NotTo(HaveOccurred())

				Expect(c.Advance(0.01)).To(Succeed())
				Expect(c.Advance(0.01)).To(Succeed())

				for i := 0; i < c.Nodes(); i++ {
					pos, _ := c.PositionAt(i)
					Expect(pos[1]).To(Equal(height))
				}
			},
			Entry("at zero", 0.0),
			Entry("below the origin", -0.5),
			Entry("above the origin", 1.25),
		)
	})

	Describe("a 3x3 sheet with structural springs only", func() {
		var c *cloth.Cloth
		const dt = 1.0 / 120

		BeforeEach(func() {
			params.Grid = cloth.Grid{Cols: 3, Rows: 3, SpacingX: 1, SpacingZ: 1, Offset: mgl64.Vec3{0, 2, 0}}
			params.Springs = cloth.Springs{Structural: cloth.SpringFamily{Ks: 0.5, Kd: -0.25, Enabled: true}}
			params.Gravity = mgl64.Vec3{0, -9.81, 0}
			params.Mass = 0.5
			params.Pinning = cloth.PinCorners

			var err error
			c, err = cloth.New(params)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Springs()).To(HaveLen(12))
		})

		It("accelerates the center node straight down on the first tick", func() {
			start, _ := c.Position(1, 1)
			Expect(c.Advance(dt)).To(Succeed())

			vel, _ := c.Velocity(1, 1)
			Expect(vel[1]).To(BeNumerically("<", 0))
			Expect(vel[1]).To(BeNumerically("~", -9.81*dt/0.5, 1e-9))
			Expect(vel[0]).To(BeZero())
			Expect(vel[2]).To(BeZero())

			pos, _ := c.Position(1, 1)
			Expect(pos[0]).To(Equal(start[0]))
			Expect(pos[2]).To(Equal(start[2]))
		})

		It("keeps rest lengths at the initial spacing", func() {
			for _, s := range c.Springs() {
				Expect(s.RestLength).To(Equal(1.0))
			}
		})
	})

	Describe("dissipative damping", func() {
		It("lets a perturbed node come to rest", func() {
			params.Grid = cloth.Grid{Cols: 3, Rows: 3, SpacingX: 1, SpacingZ: 1}
			params.Springs = cloth.Springs{Structural: cloth.SpringFamily{Ks: 0.5, Kd: -0.25, Enabled: true}}
			params.Gravity = mgl64.Vec3{}
			params.Ground.Enabled = false
			c, err := cloth.New(params)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetExternalForce(1, 1, mgl64.Vec3{5, 0, 0})).To(Succeed())
			Expect(c.Advance(0.01)).To(Succeed())
			c.ClearExternalForces()
			kick := c.KineticEnergy()
			Expect(kick).To(BeNumerically(">", 0))

			for i := 0; i < 5000; i++ {
				Expect(c.Advance(0.01)).To(Succeed())
				Expect(c.Valid()).To(BeTrue())
			}
			Expect(c.KineticEnergy()).To(BeNumerically("<", kick*1e-3))
		})
	})

	Describe("the default scene", func() {
		It("sags under gravity without blowing up", func() {
			c, err := cloth.New(params)
			Expect(err).NotTo(HaveOccurred())
			start, _ := c.Position(10, 10)

			for i := 0; i < 600; i++ {
				Expect(c.Advance(0.001)).To(Succeed())
			}
			Expect(c.Valid()).To(BeTrue())

			end, _ := c.Position(10, 10)
			Expect(end[1]).To(BeNumerically("<", start[1]))
			Expect(c.MaxStretch()).To(BeNumerically("<", 1.5))
			Expect(math.IsNaN(c.TotalEnergy())).To(BeFalse())
		})
	})
})
