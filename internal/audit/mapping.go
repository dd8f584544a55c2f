package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Overrides for methods whose name does not read as verb + resource.
var methodOverrides = map[string]ActionResource{
	"/govportal.access.v1.AccessService/ListMyPermissions":  {Action: "list", Resource: "permission"},
	"/govportal.access.v1.AccessService/CheckPermission":    {Action: "check", Resource: "permission"},
	"/govportal.access.v1.AccessService/GetUserPermissions": {Action: "get", Resource: "permission"},
	"/govportal.access.v1.AccessService/ListOrgGrants":      {Action: "list", Resource: "grant"},
	"/govportal.user.v1.UserService/DeactivateUser":         {Action: "deactivate", Resource: "user"},
}

// ParseFullMethod returns action and resource for a gRPC full method
// (e.g. /govportal.user.v1.UserService/GetUser -> get, user).
func ParseFullMethod(fullMethod string) ActionResource {
	if ar, ok := methodOverrides[fullMethod]; ok {
		return ar
	}
	// fullMethod format: /govportal.package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(beforeSlash[dot+1:])}
}

func serviceToResource(serviceName string) string {
	// UserService -> user, AuditService -> audit
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

var actionPrefixes = []struct{ prefix, action string }{
	{"Get", "get"},
	{"List", "list"},
	{"Create", "create"},
	{"Update", "update"},
	{"Delete", "delete"},
	{"Deactivate", "deactivate"},
	{"Check", "check"},
}

func methodToAction(method string) string {
	for _, p := range actionPrefixes {
		if strings.HasPrefix(method, p.prefix) && method != p.prefix {
			return p.action
		}
	}
	return strings.ToLower(method)
}
