package app

import "strings"

// 宿主路由
const (
	RouteHome = "/"

	RouteRemote1         = "/remote1"
	RouteRemote1Products = "/remote1/products"

	RouteRemote2         = "/remote2"
	RouteRemote2Cart     = "/remote2/cart"
	RouteRemote2Checkout = "/remote2/checkout"
)

// ProductDetail 返回商品详情路由
func ProductDetail(id string) string {
	return RouteRemote1Products + "/" + id
}

// ValidPath 路由必须以 "/" 开头
func ValidPath(path string) bool {
	return strings.HasPrefix(path, "/")
}
