package domain

// Outcome 单设备单周期采集结果
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeError       Outcome = "error"
)

// OutcomeCounts 一个周期内各结果计数
type OutcomeCounts struct {
	Success     int `json:"success"`
	RateLimited int `json:"rate_limited"`
	Error       int `json:"error"`
}

// Add 累加一个结果
func (c *OutcomeCounts) Add(o Outcome) {
	switch o {
	case OutcomeSuccess:
		c.Success++
	case OutcomeRateLimited:
		c.RateLimited++
	default:
		c.Error++
	}
}

// Total 设备总数
func (c OutcomeCounts) Total() int {
	return c.Success + c.RateLimited + c.Error
}
