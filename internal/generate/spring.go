// File path: internal/generate/spring.go
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Logger receives progress messages during generation. The workflow manager
// passes its activity log here.
type Logger func(level, format string, args ...interface{})

// Options name the project and control where and under which Maven
// coordinates the scaffold is written.
type Options struct {
	ProjectID   string
	TargetDir   string
	PackageName string
	ArtifactID  string
}

// BeanPlan is the migration plan for one EJB. Kind is the legacy bean kind
// (session, entity, message-driven); Target the proposed Spring stereotype
// (service, repository, jms-listener).
type BeanPlan struct {
	Class        string
	Package      string
	Kind         string
	Target       string
	Remote       bool
	Dependencies []string
	Resources    []string
}

// SpringGenerator materialises Spring Boot skeletons from converged bean plans.
type SpringGenerator struct {
	log Logger
}

// NewSpringGenerator constructs a generator. A nil logger is replaced with a
// no-op one.
func NewSpringGenerator(logger Logger) *SpringGenerator {
	if logger == nil {
		logger = func(string, string, ...interface{}) {}
	}
	return &SpringGenerator{log: logger}
}

// Generate writes a Spring Boot project for the given bean plans. When
// TargetDir is blank a fresh temporary directory is used; either way the
// directory actually written is returned.
func (g *SpringGenerator) Generate(ctx context.Context, opts Options, beans []BeanPlan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	projectID := strings.TrimSpace(opts.ProjectID)
	if projectID == "" {
		return "", errors.New("project id required")
	}
	targetDir, err := prepareTargetDir(opts.TargetDir, projectID)
	if err != nil {
		return "", err
	}

	pkgName := strings.TrimSpace(opts.PackageName)
	if pkgName == "" {
		pkgName = fmt.Sprintf("com.beanshift.%s", packageComponent(projectID))
	}
	artifactID := strings.TrimSpace(opts.ArtifactID)
	if artifactID == "" {
		artifactID = safeComponent(projectID)
	}

	if len(beans) == 0 {
		g.log("warn", "No bean plans available for project %s; generating bare skeleton", projectID)
	}
	sorted := make([]BeanPlan, len(beans))
	copy(sorted, beans)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Class < sorted[j].Class })

	packagePath := strings.ReplaceAll(pkgName, ".", string(filepath.Separator))
	mainJava := filepath.Join(targetDir, "src", "main", "java", packagePath)
	testJava := filepath.Join(targetDir, "src", "test", "java", packagePath)
	resources := filepath.Join(targetDir, "src", "main", "resources")
	subdirs := []string{mainJava, testJava, resources,
		filepath.Join(mainJava, "service"),
		filepath.Join(mainJava, "repository"),
		filepath.Join(mainJava, "messaging")}
	for _, dir := range subdirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create project directory %s: %w", dir, err)
		}
	}

	if err := g.writeApplicationJava(mainJava, pkgName); err != nil {
		return "", err
	}
	if err := g.writeApplicationTests(testJava, pkgName); err != nil {
		return "", err
	}
	for _, bean := range sorted {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := g.writeBeanSkeleton(mainJava, pkgName, bean); err != nil {
			return "", err
		}
	}
	if err := g.writeApplicationProperties(resources, artifactID); err != nil {
		return "", err
	}
	if err := g.writeReadme(targetDir, projectID, sorted); err != nil {
		return "", err
	}
	if err := g.writePom(targetDir, pkgName, artifactID, sorted); err != nil {
		return "", err
	}
	g.log("info", "Generated Spring Boot skeleton for project %s at %s", projectID, targetDir)
	return targetDir, nil
}

func prepareTargetDir(target, projectID string) (string, error) {
	targetDir := strings.TrimSpace(target)
	if targetDir == "" {
		dir, err := os.MkdirTemp("", fmt.Sprintf("beanshift-%s-spring-*", safeComponent(projectID)))
		if err != nil {
			return "", fmt.Errorf("create temp project dir: %w", err)
		}
		return dir, nil
	}
	info, err := os.Stat(targetDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("inspect target dir: %w", err)
		}
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return "", fmt.Errorf("create target dir: %w", err)
		}
		return targetDir, nil
	}
	if !info.IsDir() {
		return "", fmt.Errorf("target path %s is not a directory", targetDir)
	}
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return "", fmt.Errorf("inspect target dir: %w", err)
	}
	if len(entries) > 0 {
		return "", fmt.Errorf("target directory %s is not empty", targetDir)
	}
	return targetDir, nil
}

func (g *SpringGenerator) writeApplicationJava(dir, pkg string) error {
	content := fmt.Sprintf(`package %s;

import org.springframework.boot.SpringApplication;
import org.springframework.boot.autoconfigure.SpringBootApplication;

@SpringBootApplication
public class Application {
    public static void main(String[] args) {
        SpringApplication.run(Application.class, args);
    }
}
`, pkg)
	return writeFile(filepath.Join(dir, "Application.java"), content, 0o644)
}

func (g *SpringGenerator) writeApplicationTests(dir, pkg string) error {
	content := fmt.Sprintf(`package %s;

import org.junit.jupiter.api.Test;
import org.springframework.boot.test.context.SpringBootTest;

@SpringBootTest
class ApplicationTests {
    @Test
    void contextLoads() {
    }
}
`, pkg)
	return writeFile(filepath.Join(dir, "ApplicationTests.java"), content, 0o644)
}

func (g *SpringGenerator) writeBeanSkeleton(dir, pkg string, bean BeanPlan) error {
	className := simpleClassName(bean.Class)
	header := migrationHeader(bean)
	switch bean.Target {
	case "repository":
		content := fmt.Sprintf(`package %s.repository;

%s
import org.springframework.stereotype.Repository;

@Repository
public class %s {
    // TODO: migrate entity bean persistence to Spring Data JPA.
}
`, pkg, header, className)
		return writeFile(filepath.Join(dir, "repository", className+".java"), content, 0o644)
	case "jms-listener":
		content := fmt.Sprintf(`package %s.messaging;

%s
import org.springframework.jms.annotation.JmsListener;
import org.springframework.stereotype.Component;

@Component
public class %s {

    @JmsListener(destination = "%s")
    public void onMessage(String payload) {
        // TODO: port onMessage logic from the message-driven bean.
    }
}
`, pkg, header, className, safeComponent(className)+".queue")
		return writeFile(filepath.Join(dir, "messaging", className+".java"), content, 0o644)
	default:
		remoteNote := ""
		if bean.Remote {
			remoteNote = "\n    // TODO: replace remote home/component interfaces with REST or direct injection.\n"
		}
		content := fmt.Sprintf(`package %s.service;

%s
import org.springframework.stereotype.Service;
import org.springframework.transaction.annotation.Transactional;

@Service
@Transactional
public class %s {
%s}
`, pkg, header, className, remoteNote)
		return writeFile(filepath.Join(dir, "service", className+".java"), content, 0o644)
	}
}

func migrationHeader(bean BeanPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// Migrated from %s (%s bean).\n", bean.Class, bean.Kind)
	if len(bean.Dependencies) > 0 {
		fmt.Fprintf(&sb, "// Depends on: %s\n", strings.Join(bean.Dependencies, ", "))
	}
	if len(bean.Resources) > 0 {
		fmt.Fprintf(&sb, "// Resource references: %s\n", strings.Join(bean.Resources, ", "))
	}
	return sb.String()
}

func (g *SpringGenerator) writeApplicationProperties(dir, artifact string) error {
	content := fmt.Sprintf("spring.application.name=%s\n", artifact)
	return writeFile(filepath.Join(dir, "application.properties"), content, 0o644)
}

func (g *SpringGenerator) writeReadme(dir, projectID string, beans []BeanPlan) error {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "# Generated Spring Boot Migration Skeleton\n\n")
	fmt.Fprintf(builder, "This project was generated for **%s** from converged EJB analysis.\n\n", projectID)
	fmt.Fprintf(builder, "## Beans\n\n")
	for _, bean := range beans {
		fmt.Fprintf(builder, "- %s (%s -> %s)\n", bean.Class, bean.Kind, bean.Target)
	}
	fmt.Fprintf(builder, "\nUse `./mvnw spring-boot:run` after filling in the TODO blocks.\n")
	return writeFile(filepath.Join(dir, "README.md"), builder.String(), 0o644)
}

func (g *SpringGenerator) writePom(dir, pkg, artifact string, beans []BeanPlan) error {
	needsJPA := false
	needsJMS := false
	for _, bean := range beans {
		switch bean.Target {
		case "repository":
			needsJPA = true
		case "jms-listener":
			needsJMS = true
		}
	}
	extra := &strings.Builder{}
	if needsJPA {
		extra.WriteString(`        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-data-jpa</artifactId>
        </dependency>
`)
	}
	if needsJMS {
		extra.WriteString(`        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-activemq</artifactId>
        </dependency>
`)
	}
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://maven.apache.org/POM/4.0.0 http://maven.apache.org/xsd/maven-4.0.0.xsd">
    <modelVersion>4.0.0</modelVersion>
    <parent>
        <groupId>org.springframework.boot</groupId>
        <artifactId>spring-boot-starter-parent</artifactId>
        <version>3.2.5</version>
        <relativePath/>
    </parent>
    <groupId>%s</groupId>
    <artifactId>%s</artifactId>
    <version>0.0.1-SNAPSHOT</version>
    <description>Generated migration skeleton</description>
    <properties>
        <java.version>17</java.version>
    </properties>
    <dependencies>
        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-web</artifactId>
        </dependency>
%s        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-test</artifactId>
            <scope>test</scope>
        </dependency>
    </dependencies>
    <build>
        <plugins>
            <plugin>
                <groupId>org.springframework.boot</groupId>
                <artifactId>spring-boot-maven-plugin</artifactId>
            </plugin>
        </plugins>
    </build>
</project>
`, pkg, artifact, extra.String())
	return writeFile(filepath.Join(dir, "pom.xml"), content, 0o644)
}

func writeFile(path, content string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), perm)
}

func simpleClassName(qualified string) string {
	if idx := strings.LastIndex(qualified, "."); idx >= 0 {
		qualified = qualified[idx+1:]
	}
	name := strings.TrimSuffix(qualified, "Bean")
	if name == "" {
		name = qualified
	}
	return name
}

func safeComponent(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "project"
	}
	var builder strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(r + 32)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	cleaned := strings.Trim(builder.String(), "-")
	if cleaned == "" {
		return "project"
	}
	return cleaned
}

// packageComponent reduces a project id to a legal Java package segment:
// lowercase alphanumerics only, never starting with a digit. Dashes are fine
// in a Maven artifactId but not here.
func packageComponent(value string) string {
	var builder strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(r + 32)
		}
	}
	cleaned := strings.TrimLeft(builder.String(), "0123456789")
	if cleaned == "" {
		return "project"
	}
	return cleaned
}
