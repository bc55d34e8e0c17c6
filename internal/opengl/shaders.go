package opengl

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"shadow-engine/scene"
	"shadow-engine/shadow"
)

const (
	maxLights       = 8
	maxTextureUnits = 4
	maxClipPlanes   = 6
)

// ── Fixed-function emulation ─────────────────────────────────────────────────

// passVertSrc transforms mesh vertices and homogeneous vertex lists alike:
// a w of 0 is a point at infinity and is passed through untouched.
const passVertSrc = `
#version 410 core
layout(location = 0) in vec4 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;
layout(location = 3) in vec4 inColor;

uniform mat4 world;
uniform mat4 view;
uniform mat4 proj;
uniform int  clipCount;
uniform vec4 clipPlanes[6];
uniform mat4 texMatrix[4];
uniform bool texProjective[4];

out vec3 fragWorldPos;
out vec3 fragNormal;
out vec2 fragUV;
out vec4 fragColor;
out vec4 fragTexProj[4];
out float fragViewDepth;

void main() {
    vec4 worldPos = world * inPosition;
    fragWorldPos  = worldPos.xyz;
    fragNormal    = mat3(world) * inNormal;
    fragUV        = inUV;
    fragColor     = inColor;
    for (int i = 0; i < 4; i++) {
        fragTexProj[i] = texProjective[i] ? texMatrix[i] * worldPos : vec4(inUV, 0.0, 1.0);
    }
    for (int i = 0; i < 6; i++) {
        gl_ClipDistance[i] = i < clipCount ? dot(worldPos, clipPlanes[i]) : 1.0;
    }
    vec4 viewPos  = view * worldPos;
    fragViewDepth = -viewPos.z;
    gl_Position   = proj * viewPos;
}
` + "\x00"

const passFragSrc = `
#version 410 core
in vec3 fragWorldPos;
in vec3 fragNormal;
in vec2 fragUV;
in vec4 fragColor;
in vec4 fragTexProj[4];
in float fragViewDepth;

uniform vec4  sceneAmbient;
uniform vec4  matAmbient;
uniform vec4  matDiffuse;
uniform vec4  matSpecular;
uniform vec4  matEmissive;
uniform float matShininess;
uniform bool  lighting;
uniform vec3  cameraPos;

// type: 0 point, 1 directional, 2 spot
uniform int   lightCount;
uniform int   lightType[8];
uniform vec3  lightPos[8];
uniform vec3  lightDir[8];
uniform vec4  lightDiffuse[8];
uniform vec4  lightSpecular[8];
uniform float lightRange[8];
uniform float lightCosInner[8];
uniform float lightCosOuter[8];

// op: 0 modulate, 1 replace, 2 add, 3 alpha blend, 4 source1
uniform int       texCount;
uniform sampler2D tex[4];
uniform int       texOp[4];
uniform int       texSource1[4];
uniform vec4      texManual[4];

// alphaFunc follows materials.CompareFunction.
uniform int   alphaFunc;
uniform float alphaRef;

// fogMode: 0 none, 1 exp, 2 exp2, 3 linear
uniform int   fogMode;
uniform vec4  fogColor;
uniform float fogDensity;
uniform float fogStart;
uniform float fogEnd;

out vec4 outColor;

bool compare(int fn, float a, float b) {
    if (fn == 0) return false;
    if (fn == 2) return a < b;
    if (fn == 3) return a <= b;
    if (fn == 4) return a == b;
    if (fn == 5) return a != b;
    if (fn == 6) return a >= b;
    if (fn == 7) return a > b;
    return true;
}

vec4 shade() {
    if (!lighting) {
        return matDiffuse * fragColor;
    }
    vec3 n = normalize(fragNormal);
    vec3 v = normalize(cameraPos - fragWorldPos);
    vec3 diffuse  = vec3(0.0);
    vec3 specular = vec3(0.0);
    for (int i = 0; i < lightCount; i++) {
        vec3  l;
        float atten = 1.0;
        if (lightType[i] == 1) {
            l = -normalize(lightDir[i]);
        } else {
            vec3  d    = lightPos[i] - fragWorldPos;
            float dist = length(d);
            l     = d / max(dist, 1e-6);
            atten = clamp(1.0 - dist / max(lightRange[i], 1e-6), 0.0, 1.0);
            if (lightType[i] == 2) {
                float c = dot(-l, normalize(lightDir[i]));
                atten *= smoothstep(lightCosOuter[i], lightCosInner[i], c);
            }
        }
        float ndl = max(dot(n, l), 0.0);
        diffuse += lightDiffuse[i].rgb * ndl * atten;
        if (ndl > 0.0 && matShininess > 0.0) {
            vec3 h = normalize(l + v);
            specular += lightSpecular[i].rgb * pow(max(dot(n, h), 0.0), matShininess) * atten;
        }
    }
    vec3 c = sceneAmbient.rgb * matAmbient.rgb + diffuse * matDiffuse.rgb + specular * matSpecular.rgb + matEmissive.rgb;
    return vec4(c, matDiffuse.a) * fragColor;
}

void main() {
    vec4 c = shade();
    for (int i = 0; i < texCount; i++) {
        vec4 t = texture(tex[i], fragTexProj[i].xy / fragTexProj[i].w);
        if (texSource1[i] == 3) {
            t = texManual[i];
        }
        if (texOp[i] == 0) {
            c *= t;
        } else if (texOp[i] == 1 || texOp[i] == 4) {
            c = t;
        } else if (texOp[i] == 2) {
            c = vec4(c.rgb + t.rgb, c.a * t.a);
        } else {
            c = vec4(mix(c.rgb, t.rgb, t.a), c.a);
        }
    }
    if (!compare(alphaFunc, c.a, alphaRef)) {
        discard;
    }
    if (fogMode != 0) {
        float f = 1.0;
        if (fogMode == 1) {
            f = exp(-fogDensity * fragViewDepth);
        } else if (fogMode == 2) {
            f = exp(-pow(fogDensity * fragViewDepth, 2.0));
        } else {
            f = (fogEnd - fragViewDepth) / max(fogEnd - fogStart, 1e-6);
        }
        c.rgb = mix(fogColor.rgb, c.rgb, clamp(f, 0.0, 1.0));
    }
    outColor = c;
}
` + "\x00"

// ── Shadow volume extrusion ──────────────────────────────────────────────────

// extrudeVertTemplate pushes w == 0 vertices away from lightPosition. The
// %s slot holds the body for the light type and far plane.
const extrudeVertTemplate = `
#version 410 core
layout(location = 0) in vec4 inPosition;

uniform mat4  world;
uniform mat4  view;
uniform mat4  proj;
uniform vec4  lightPosition;
uniform float extrusionDistance;
uniform int   clipCount;
uniform vec4  clipPlanes[6];

void main() {
    vec4 p = world * inPosition;
    vec4 pos;
%s
    for (int i = 0; i < 6; i++) {
        gl_ClipDistance[i] = i < clipCount ? dot(vec4(p.xyz, 1.0), clipPlanes[i]) : 1.0;
    }
    gl_Position = proj * view * pos;
}
` + "\x00"

const (
	extrudePointInfinite = `    vec3 d = p.xyz - lightPosition.xyz;
    pos = p.w == 0.0 ? vec4(d, 0.0) : vec4(p.xyz, 1.0);`
	extrudePointFinite = `    vec3 d = normalize(vec3(p.xyz - lightPosition.xyz));
    pos = vec4(p.xyz + (1.0 - p.w) * d * extrusionDistance, 1.0);`
	extrudeDirectionalInfinite = `    pos = p.w == 0.0 ? vec4(-lightPosition.xyz, 0.0) : vec4(p.xyz, 1.0);`
	extrudeDirectionalFinite   = `    pos = vec4(p.xyz - (1.0 - p.w) * lightPosition.xyz * extrusionDistance, 1.0);`
)

// colourFragSrc writes the pass colour; it backs volume and debug draws.
const colourFragSrc = `
#version 410 core
uniform vec4 matDiffuse;
out vec4 outColor;
void main() {
    outColor = matDiffuse;
}
` + "\x00"

// program is a linked GLSL program with its uniform locations cached.
type program struct {
	name string
	id   uint32
	locs map[string]int32
}

func (p *program) loc(name string) int32 {
	if l, ok := p.locs[name]; ok {
		return l
	}
	l := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locs[name] = l
	return l
}

func (p *program) destroy() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

func newProgramNamed(name, vertSrc, fragSrc string) (*program, error) {
	id, err := newProgram(vertSrc, fragSrc)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	return &program{name: name, id: id, locs: make(map[string]int32)}, nil
}

// extrusionPrograms builds every variant shadow.ExtrusionProgramName names.
func extrusionPrograms() (map[string]*program, error) {
	out := make(map[string]*program)
	for _, t := range []scene.LightType{scene.LightPoint, scene.LightDirectional} {
		for _, finite := range []bool{false, true} {
			body := extrudePointInfinite
			switch {
			case t == scene.LightDirectional && finite:
				body = extrudeDirectionalFinite
			case t == scene.LightDirectional:
				body = extrudeDirectionalInfinite
			case finite:
				body = extrudePointFinite
			}
			vert := fmt.Sprintf(extrudeVertTemplate, body)
			for _, debug := range []bool{false, true} {
				name := shadow.ExtrusionProgramName(t, finite, debug)
				p, err := newProgramNamed(name, vert, colourFragSrc)
				if err != nil {
					for _, q := range out {
						q.destroy()
					}
					return nil, err
				}
				out[name] = p
			}
		}
	}
	return out, nil
}

// ── Shader helpers ────────────────────────────────────────────────────────────

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, fmt.Errorf("fragment: %w", err)
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", log)
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", log)
	}
	return shader, nil
}
