package httpclient

import "fmt"

// ChainResolver 依次尝试多个 Resolver，第一个成功的结果生效。
// 典型用法：Nacos 发现失败时退回配置里的静态地址。
type ChainResolver []Resolver

func (r ChainResolver) Resolve(serviceName string) (string, error) {
	var lastErr error
	for _, resolver := range r {
		addr, err := resolver.Resolve(serviceName)
		if err == nil {
			return addr, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no resolver configured")
	}
	return "", fmt.Errorf("resolve %s: %w", serviceName, lastErr)
}
