package monitoring

import "sync/atomic"

var uploadRequestsTotal atomic.Uint64
var uploadRequestsFailed atomic.Uint64
var uploadBytesTotal atomic.Int64

type UploadStats struct {
	RequestsTotal uint64
	FailedTotal   uint64
	BytesTotal    int64
}

// RecordUpload counts one image-upload attempt (tool images or profile
// pictures) and the bytes it wrote.
func RecordUpload(bytes int64, success bool) {
	uploadRequestsTotal.Add(1)
	if !success {
		uploadRequestsFailed.Add(1)
	}
	if bytes > 0 {
		uploadBytesTotal.Add(bytes)
	}
}

func getUploadStats() UploadStats {
	return UploadStats{
		RequestsTotal: uploadRequestsTotal.Load(),
		FailedTotal:   uploadRequestsFailed.Load(),
		BytesTotal:    uploadBytesTotal.Load(),
	}
}
