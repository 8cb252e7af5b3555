package store

import "sync"

// OnceCancel 包装取消函数，只执行一次，之后的调用返回首次的结果
func OnceCancel(fn func() error) CancelFunc {
	var (
		once sync.Once
		err  error
	)
	return func() error {
		once.Do(func() {
			if fn != nil {
				err = fn()
			}
		})
		return err
	}
}
