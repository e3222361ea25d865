package service

// 分析流水线的进度阶段（闭集）
const (
	StageFetchingRepo       = "fetching_repo"
	StageFetchingStargazers = "fetching_stargazers"
	StageFetchingDetails    = "fetching_details"
	StageResolvingLocations = "resolving_locations"
	StageComplete           = "complete"
)

// Progress 一次进度事件：阶段 + 已处理/总数 + 人类可读消息
type Progress struct {
	Stage     string
	Processed int
	Total     int
	Message   string
}

// ProgressFunc 进度回调。返回非 nil error 时流水线在下一个
// 检查点中止并原样返回该错误——协作式取消走的就是这条路。
type ProgressFunc func(p Progress) error

func emit(onProgress ProgressFunc, p Progress) error {
	if onProgress == nil {
		return nil
	}
	return onProgress(p)
}
