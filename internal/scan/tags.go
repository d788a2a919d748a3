// File path: internal/scan/tags.go
package scan

// Canonical tag names shared by collectors and inspectors. Tags are boolean
// and monotonic; see internal/inspect for the aggregation rules.
const (
	TagFile  = "file"
	TagClass = "class"

	TagJavaSource = "java-source"
	TagXML        = "xml"
	TagJSP        = "jsp"
	TagProperties = "properties"
	TagHasImports = "has-imports"

	TagEJBDescriptor = "ejb-descriptor"
	TagSessionBean   = "session-bean"
	TagEntityBean    = "entity-bean"
	TagMessageDriven = "message-driven-bean"
	TagEJBHome       = "ejb-home"
	TagEJBRemote     = "ejb-remote"

	TagServiceCandidate    = "spring-service-candidate"
	TagRepositoryCandidate = "spring-repository-candidate"
	TagListenerCandidate   = "spring-listener-candidate"
)

// Canonical property keys.
const (
	PropPath      = "path"
	PropExtension = "ext"
	PropContent   = "content"

	PropPackage       = "package"
	PropClassName     = "class_name"
	PropQualifiedName = "qualified_name"
	PropSuperclass    = "superclass"
	PropInterfaces    = "interfaces"
	PropImports       = "imports"
	PropIsInterface   = "is_interface"

	PropBeanKind     = "bean_kind"
	PropBeanClasses  = "descriptor_bean_classes"
	PropBeanKinds    = "descriptor_bean_kinds"
	PropTransactions = "descriptor_transactions"
	PropEJBRefs      = "descriptor_ejb_refs"
	PropResourceRefs = "descriptor_resource_refs"

	PropSpringTarget = "spring_target"
	PropComplexity   = "migration_complexity"
)
