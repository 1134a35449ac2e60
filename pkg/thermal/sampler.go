package thermal

import (
	"fmt"

	"github.com/ja7ad/omenfan/pkg/ec"
	"github.com/ja7ad/omenfan/pkg/types"
)

// Reading holds both sensors and the value the controller acts on.
type Reading struct {
	CPU types.Celsius `json:"cpu"`
	GPU types.Celsius `json:"gpu"`
}

// Max returns the hotter of the two sensors.
func (r Reading) Max() types.Celsius { return types.Max(r.CPU, r.GPU) }

// Sampler reads the CPU and GPU temperature registers.
type Sampler struct {
	regs ec.Reader
}

// NewSampler returns a Sampler reading from regs.
func NewSampler(regs ec.Reader) *Sampler {
	return &Sampler{regs: regs}
}

// Read returns both sensor values. Either failing fails the whole reading.
func (s *Sampler) Read() (Reading, error) {
	cpu, err := s.regs.ReadRegister(ec.CpuTemp)
	if err != nil {
		return Reading{}, fmt.Errorf("sample cpu: %w", err)
	}
	gpu, err := s.regs.ReadRegister(ec.GpuTemp)
	if err != nil {
		return Reading{}, fmt.Errorf("sample gpu: %w", err)
	}
	return Reading{CPU: types.Celsius(cpu), GPU: types.Celsius(gpu)}, nil
}

// Sample returns max(cpu, gpu). It is Read().Max() for callers that do not
// need the individual sensors, such as the startup check.
func (s *Sampler) Sample() (types.Celsius, error) {
	r, err := s.Read()
	if err != nil {
		return 0, err
	}
	return r.Max(), nil
}
