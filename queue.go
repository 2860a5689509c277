package vkcore

import vk "github.com/vulkan-go/vulkan"

// QueueRole names the three logical queues a Device submits work
// through. Device does not order submissions across roles; that is the
// caller's responsibility.
type QueueRole int

const (
	QueueGraphics QueueRole = iota
	QueueCompute
	QueueTransfer
	queueRoleCount
)

// queuePlan resolves each QueueRole to a queue family index, aliasing
// roles onto the graphics family when the GPU has no dedicated family
// for them. Grounded on the teacher's queue.go (CoreQueue.FindSuitableQueue,
// IsDeviceSuitable) generalized from a single graphics+present pair to
// the three-role model spec.md requires.
type queuePlan struct {
	family    [queueRoleCount]uint32
	dedicated [queueRoleCount]bool
}

// resolveQueueFamilies picks one queue family per role. Graphics is
// mandatory; Compute and Transfer prefer a family that does not also
// report Graphics support (a genuinely separate async queue), falling
// back to the graphics family when the GPU exposes none.
func resolveQueueFamilies(families []vk.QueueFamilyProperties) *queuePlan {
	p := &queuePlan{}

	graphicsFound := false
	for i, f := range families {
		if f.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			p.family[QueueGraphics] = uint32(i)
			p.dedicated[QueueGraphics] = true
			graphicsFound = true
			break
		}
	}
	if !graphicsFound {
		// caller's CreateDevice will fail queue creation; leave zeroed.
		return p
	}

	p.family[QueueCompute] = findDedicatedFamily(families, vk.QueueComputeBit, p.family[QueueGraphics])
	p.dedicated[QueueCompute] = p.family[QueueCompute] != p.family[QueueGraphics]

	p.family[QueueTransfer] = findDedicatedFamily(families, vk.QueueTransferBit, p.family[QueueGraphics])
	p.dedicated[QueueTransfer] = p.family[QueueTransfer] != p.family[QueueGraphics]

	return p
}

// findDedicatedFamily looks for a family that supports want but not
// graphics, preferring the most specialized (fewest other bits set)
// match -- this is how a true async-compute or DMA-only transfer queue
// is distinguished from the general graphics+compute+transfer family
// every GPU exposes at index 0.
func findDedicatedFamily(families []vk.QueueFamilyProperties, want vk.QueueFlagBits, fallback uint32) uint32 {
	bestIdx := -1
	bestBits := 33
	for i, f := range families {
		flags := uint32(f.QueueFlags)
		if flags&uint32(want) == 0 {
			continue
		}
		if flags&uint32(vk.QueueGraphicsBit) != 0 {
			continue
		}
		n := 0
		for b := flags; b != 0; b &= b - 1 {
			n++
		}
		if n < bestBits {
			bestBits = n
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return fallback
	}
	return uint32(bestIdx)
}

// createInfos builds one VkDeviceQueueCreateInfo per distinct family
// index the plan uses, with a single queue of priority 1.0 each --
// vkcore asks for one queue per family rather than requesting multiple
// hardware queues per family, so roles that share a family share that
// one queue.
func (p *queuePlan) createInfos() []vk.DeviceQueueCreateInfo {
	seen := map[uint32]bool{}
	var infos []vk.DeviceQueueCreateInfo
	for role := QueueRole(0); role < queueRoleCount; role++ {
		fam := p.family[role]
		if seen[fam] {
			continue
		}
		seen[fam] = true
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: fam,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}
	return infos
}

func (p *queuePlan) Family(role QueueRole) uint32 { return p.family[role] }
func (p *queuePlan) Dedicated(role QueueRole) bool { return p.dedicated[role] }

// Queues binds the logical vk.Queue handles for each role once the
// device exists. Grounded on the teacher's queue.go CreateQueues.
type Queues struct {
	plan  *queuePlan
	queue [queueRoleCount]vk.Queue
}

func NewQueues(device vk.Device, plan *queuePlan) *Queues {
	q := &Queues{plan: plan}
	for role := QueueRole(0); role < queueRoleCount; role++ {
		var handle vk.Queue
		vk.GetDeviceQueue(device, plan.family[role], 0, &handle)
		q.queue[role] = handle
	}
	return q
}

func (q *Queues) Get(role QueueRole) vk.Queue   { return q.queue[role] }
func (q *Queues) Family(role QueueRole) uint32   { return q.plan.family[role] }
func (q *Queues) Dedicated(role QueueRole) bool { return q.plan.dedicated[role] }
